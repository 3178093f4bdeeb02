package models

import "time"

// FileUploadPolicy names the model that serves every file-bearing request,
// together with the catalog provider that offers it.
type FileUploadPolicy struct {
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	UpdatedAt time.Time `json:"updatedAt"`
}
