package models

import "time"

// Message kinds. The wire field is named "type" for compatibility with the
// stored records.
const (
	KindText  = "text"
	KindPhoto = "photo"
)

// Message is one mailbox record under userMessages. A logical message is
// duplicated into two records, one per participant's mailbox; after the write
// the copies share no identity and are mutated independently (only the photo
// fileName back-fill ever mutates one).
//
// For text messages Data holds the literal text. For photo messages Data
// holds a device-local URI before upload and the durable download URL after;
// FileName is the local cache key, back-filled asynchronously once the photo
// has been cached.
type Message struct {
	From     string    `bson:"from" json:"from"`
	To       string    `bson:"to" json:"to"`
	Type     string    `bson:"type" json:"type"`
	Data     string    `bson:"data" json:"data"`
	FileName string    `bson:"fileName,omitempty" json:"fileName,omitempty"`
	Date     time.Time `bson:"date" json:"date"`
}

// NewTextMessage builds a text message stamped with the current time.
func NewTextMessage(from, to, text string) Message {
	return Message{From: from, To: to, Type: KindText, Data: text, Date: time.Now().UTC()}
}

// NewPhotoMessage builds a photo message whose Data still points at the
// sender's local URI; the conversation engine replaces it with the uploaded
// download URL before any write.
func NewPhotoMessage(from, to, localURI string) Message {
	return Message{From: from, To: to, Type: KindPhoto, Data: localURI, Date: time.Now().UTC()}
}

// IsPhoto reports whether the message is the photo variant. Records written
// before the type field existed are classified by the presence of fileName.
func (m Message) IsPhoto() bool {
	return m.Type == KindPhoto || (m.Type == "" && m.FileName != "")
}

// Partner returns the other participant from selfID's point of view.
func (m Message) Partner(selfID string) string {
	if m.From == selfID {
		return m.To
	}
	return m.From
}
