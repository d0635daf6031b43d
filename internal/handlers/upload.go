package handlers

import (
	"io"
	"net/http"
	"os"
)

type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// UploadPhoto accepts a multipart photo and runs the appropriate upload path:
// profile avatars overwrite usersImages/<userID>, photo messages get a fresh
// key under userPhotoMessage/<userID>. The bytes land in the local cache
// either way. Spool to a temp file first so the upload paths see the same
// local-URI shape as photos picked from a device.
func UploadPhoto(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := sessionFromRequest(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	// Max 10MB.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file provided: "+err.Error())
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "pairlink-upload-*")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		respondError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}
	tmp.Close()

	kind := r.URL.Query().Get("kind")
	if kind == "profile" {
		url, err := photos.UploadProfilePhoto(r.Context(), sess.SelfID(), tmp.Name())
		if err != nil {
			respondError(w, http.StatusBadGateway, "Failed to upload file: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, UploadResponse{Success: true, Message: "File uploaded successfully", URL: url})
		return
	}

	url, key, err := photos.UploadPhotoMessage(r.Context(), sess.SelfID(), tmp.Name())
	if err != nil {
		respondError(w, http.StatusBadGateway, "Failed to upload file: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, UploadResponse{Success: true, Message: "File uploaded successfully", URL: url, FileName: key})
}
