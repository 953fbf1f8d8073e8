package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"civicx-be/filestore"
	"civicx-be/pkg/resp"
)

// Attachments above this size are rejected before hitting the bucket.
const maxUploadBytes = 10 << 20

type FileController struct {
	files *filestore.Store
}

func NewFileController(files *filestore.Store) *FileController {
	return &FileController{files: files}
}

// Upload stores a multipart attachment and returns its id and view URL.
func (fc *FileController) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		resp.BadRequest(c, "file field is required")
		return
	}
	if header.Size > maxUploadBytes {
		resp.BadRequest(c, "file exceeds the 10MB limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		resp.BadRequest(c, "could not read uploaded file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	fileID, err := fc.files.Upload(c.Request.Context(), file, header.Size, contentType)
	if err != nil {
		resp.Error(c, err)
		return
	}

	resp.Created(c, gin.H{
		"fileId":  fileID,
		"viewUrl": fc.files.ViewURL(fileID),
	})
}

// View returns the public URL for an attachment.
func (fc *FileController) View(c *gin.Context) {
	resp.OK(c, gin.H{"url": fc.files.ViewURL(c.Param("id"))})
}

// Download returns a presigned URL for an attachment.
func (fc *FileController) Download(c *gin.Context) {
	url, err := fc.files.DownloadURL(c.Request.Context(), c.Param("id"), 15*time.Minute)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, gin.H{"url": url})
}
