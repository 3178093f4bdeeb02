package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"routing_gateway/internal/chat"
	"routing_gateway/internal/config"
	"routing_gateway/internal/errs"
	"routing_gateway/internal/utils"
)

const (
	maxJSONBodyBytes  = 1 << 20
	multipartMemBytes = 8 << 20
)

// ChatHandler serves chat completions
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	upload       config.UploadConfig
}

// NewChatHandler creates a new chat handler
func NewChatHandler(orchestrator *chat.Orchestrator, upload config.UploadConfig) *ChatHandler {
	if upload.MaxFileBytes <= 0 {
		upload.MaxFileBytes = 10 << 20
	}
	return &ChatHandler{orchestrator: orchestrator, upload: upload}
}

type chatRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
}

type legResponse struct {
	Response string `json:"response"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Error    string `json:"error,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

type chatResponse struct {
	Response      legResponse  `json:"response"`
	FileProcessed bool         `json:"File Processed"`
	FileResponse  *legResponse `json:"File_response,omitempty"`
	FileNotice    string       `json:"file_notice,omitempty"`
	RequestID     string       `json:"request_id,omitempty"`
}

// Complete handles POST /v1/chat/completions with a JSON, urlencoded or
// multipart body.
func (h *ChatHandler) Complete(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.RequestID = middleware.GetReqID(r.Context())

	resp, err := h.orchestrator.Handle(r.Context(), *req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := chatResponse{
		Response: legResponse{
			Response: resp.Text.Text,
			Provider: resp.Text.Provider,
			Model:    resp.Text.Model,
		},
		FileProcessed: resp.FileAttached,
		FileNotice:    resp.FileNotice,
		RequestID:     resp.RequestID,
	}
	if resp.File != nil {
		leg := &legResponse{Response: resp.File.Text, Provider: resp.File.Provider, Model: resp.File.Model}
		if resp.File.Err != nil {
			leg.Error = errorMessage(resp.File.Err)
			leg.Kind = string(errs.KindOf(resp.File.Err))
		}
		out.FileResponse = leg
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) decode(w http.ResponseWriter, r *http.Request) (*chat.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var body chatRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&body); err != nil {
			return nil, errs.Wrap(errs.InvalidRequest, err, "invalid JSON body")
		}
		return &chat.Request{Provider: body.Provider, Model: body.Model, Prompt: body.Prompt}, nil

	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxFileBytes+maxJSONBodyBytes)
		if err := r.ParseMultipartForm(multipartMemBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, errs.New(errs.InvalidRequest, "file exceeds %d bytes", h.upload.MaxFileBytes)
			}
			return nil, errs.Wrap(errs.InvalidRequest, err, "invalid multipart body")
		}
		req := formRequest(r)
		file, err := h.readFile(r)
		if err != nil {
			return nil, err
		}
		req.File = file
		return req, nil

	default:
		if err := r.ParseForm(); err != nil {
			return nil, errs.Wrap(errs.InvalidRequest, err, "invalid form body")
		}
		return formRequest(r), nil
	}
}

func formRequest(r *http.Request) *chat.Request {
	return &chat.Request{
		Provider: r.FormValue("provider"),
		Model:    r.FormValue("model"),
		Prompt:   r.FormValue("prompt"),
	}
}

// readFile returns the "file" part, or nil when none was sent
func (h *ChatHandler) readFile(r *http.Request) (*chat.Attachment, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.InvalidRequest, err, "invalid file part")
	}
	defer f.Close()

	if header.Filename == "" {
		return nil, nil
	}
	if header.Size > h.upload.MaxFileBytes {
		return nil, errs.New(errs.InvalidRequest, "file exceeds %d bytes", h.upload.MaxFileBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, h.upload.MaxFileBytes+1))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidRequest, err, "failed to read file")
	}
	if int64(len(data)) > h.upload.MaxFileBytes {
		return nil, errs.New(errs.InvalidRequest, "file exceeds %d bytes", h.upload.MaxFileBytes)
	}

	return &chat.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
