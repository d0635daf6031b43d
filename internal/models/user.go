package models

import (
	"fmt"
	"strings"
	"time"
)

// StatusOnline is the only non-timestamped user status value.
const StatusOnline = "online"

// User is the public user record stored under users/{id}.
type User struct {
	ID       string `bson:"id" json:"id"`
	Username string `bson:"username" json:"username"`
	ImageURL string `bson:"imageUrl" json:"imageUrl"`
	// Status is either "online" or "last seen <epoch-seconds>".
	Status string `bson:"userStatues" json:"userStatues"`
}

// ProfileUser extends User with the personal-info fields kept in the
// userPersonalInfo/{id} record. It exists only while a profile is being
// viewed or edited and is never persisted as one entity.
type ProfileUser struct {
	User      `bson:",inline"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Gender    string `bson:"gender" json:"gender"`
}

// PersonalInfo is the private half of a profile, stored under
// userPersonalInfo/{id}.
type PersonalInfo struct {
	ID        string `bson:"id" json:"id"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Gender    string `bson:"gender" json:"gender"`
}

// PersonalInfo splits the profile into its private record.
func (p ProfileUser) PersonalInfo() PersonalInfo {
	return PersonalInfo{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Gender:    p.Gender,
	}
}

// Complete reports whether every profile field is filled in.
func (p ProfileUser) Complete() bool {
	for _, v := range []string{p.ID, p.Username, p.FirstName, p.LastName, p.Gender} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// LastSeenStatus formats the offline status written on logout.
func LastSeenStatus(at time.Time) string {
	return fmt.Sprintf("last seen %d", at.Unix())
}
