// Package types holds the request bodies shared by the HTTP API and its
// client.
package types

import "unhunk/internal/errors"

// FileRequest addresses one file of a repository.
type FileRequest struct {
	Repo string `json:"repo"`
	Path string `json:"path"`
}

func (r *FileRequest) Validate() error {
	details := map[string]string{}
	if r.Repo == "" {
		details["repo"] = "required"
	}
	if r.Path == "" {
		details["path"] = "required"
	}
	if len(details) > 0 {
		return errors.ValidationError("invalid request", details)
	}
	return nil
}

type HunkRequest struct {
	FileRequest
	Index *int `json:"index"`
}

func (r *HunkRequest) Validate() error {
	if err := r.FileRequest.Validate(); err != nil {
		return err
	}
	if r.Index == nil {
		return errors.ValidationError("invalid request", map[string]string{"index": "required"})
	}
	return nil
}

// LinesRequest selects the 1-based inclusive range [Start, End] of the
// current file.
type LinesRequest struct {
	FileRequest
	Start int `json:"start"`
	End   int `json:"end"`
}

type UndoRequest struct {
	Repo string `json:"repo"`
	ID   string `json:"id"`
}

func (r *UndoRequest) Validate() error {
	details := map[string]string{}
	if r.Repo == "" {
		details["repo"] = "required"
	}
	if r.ID == "" {
		details["id"] = "required"
	}
	if len(details) > 0 {
		return errors.ValidationError("invalid request", details)
	}
	return nil
}
