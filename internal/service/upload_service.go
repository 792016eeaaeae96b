package service

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OPS-PIvers/OHS-Digital-Microscope/internal/repository"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/cache"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/logger"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/utils"
	"github.com/OPS-PIvers/OHS-Digital-Microscope/pkg/validator"
)

// UploadService stores slide images on local disk and keeps view references
// consistent across renames and deletes.
type UploadService struct {
	uploadDir string
	maxSize   int64
	viewRepo  repository.ViewRepository
	cache     *cache.Cache
}

type UploadInfo struct {
	URL      string    `json:"url"`
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

// svgActiveContent matches script vectors an SVG slide has no business
// carrying.
var svgActiveContent = regexp.MustCompile(`(?i)<script|javascript:|\son[a-z]+\s*=`)

func NewUploadService(uploadDir string, maxSize int64, viewRepo repository.ViewRepository, cacheService *cache.Cache) *UploadService {
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		os.MkdirAll(uploadDir, 0755)
	}

	return &UploadService{
		uploadDir: uploadDir,
		maxSize:   maxSize,
		viewRepo:  viewRepo,
		cache:     cacheService,
	}
}

func (s *UploadService) UploadImage(file *multipart.FileHeader) (*UploadInfo, error) {
	if !validator.ValidateFileSize(file.Size, s.maxSize) {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, s.maxSize)
	}

	if !validator.ValidateImageExtension(file.Filename) {
		return nil, ErrUnsupportedUpload
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, s.maxSize)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if err := checkImageContent(ext, content); err != nil {
		return nil, err
	}

	filename := s.generateFilename(file.Filename, ext)
	path := filepath.Join(s.uploadDir, filename)

	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	logger.Info("Image uploaded", map[string]interface{}{
		"filename": filename,
		"size":     info.Size(),
	})

	return &UploadInfo{
		URL:      "/uploads/" + filename,
		Filename: filename,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}, nil
}

// checkImageContent verifies the bytes really are the format the extension
// claims. SVG has no magic number; it is scanned for active content instead
// and rejected outright when any is found.
func checkImageContent(ext string, content []byte) error {
	detected := validator.DetectFileType(content)

	if ext == ".svg" {
		if detected != "image/svg+xml" && detected != "text/xml" {
			return fmt.Errorf("%w: content does not look like svg", ErrUnsupportedUpload)
		}
		if svgActiveContent.Match(content) {
			return fmt.Errorf("%w: svg contains active content", ErrUnsupportedUpload)
		}
		return nil
	}

	expected := map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
	}[ext]

	if detected != expected {
		return fmt.Errorf("%w: content does not match its extension", ErrUnsupportedUpload)
	}

	return nil
}

// generateFilename builds a collision-proof name: a short uuid prefix plus a
// slug of the original name.
func (s *UploadService) generateFilename(originalName, ext string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))

	cleaned := utils.GenerateSlug(base)
	if cleaned == "" {
		cleaned = "image"
	}

	candidate := fmt.Sprintf("%s-%s%s", uuid.New().String()[:8], cleaned, ext)
	if !s.fileExists(candidate) {
		return candidate
	}

	return fmt.Sprintf("%s%s", uuid.New().String(), ext)
}

func (s *UploadService) fileExists(name string) bool {
	_, err := os.Stat(filepath.Join(s.uploadDir, name))
	return err == nil
}

func (s *UploadService) ListImages() ([]UploadInfo, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return nil, err
	}

	uploads := make([]UploadInfo, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !validator.ValidateImageExtension(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		uploads = append(uploads, UploadInfo{
			URL:      "/uploads/" + name,
			Filename: name,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(uploads, func(i, j int) bool {
		return uploads[i].ModTime.After(uploads[j].ModTime)
	})

	return uploads, nil
}

// Rename gives an upload a new admin-chosen name and rewrites every view that
// referenced the old URL.
func (s *UploadService) Rename(current, newName string) (*UploadInfo, error) {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return nil, ErrInvalidUploadName
	}

	filename := filepath.Base(strings.TrimSpace(current))
	if !validator.ValidateImageExtension(filename) {
		return nil, ErrImageNotFound
	}

	currentAbs, err := s.insideUploadDir(filename)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(currentAbs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	newFilename := s.renameCandidate(trimmed, ext, filename)

	if newFilename != filename {
		newAbs, err := s.insideUploadDir(newFilename)
		if err != nil {
			return nil, err
		}

		if err := os.Rename(currentAbs, newAbs); err != nil {
			return nil, err
		}

		rewritten, err := s.viewRepo.RewriteImageURL("/uploads/"+filename, "/uploads/"+newFilename)
		if err != nil {
			logger.Error(err, "Failed to rewrite image references", map[string]interface{}{
				"old": filename,
				"new": newFilename,
			})
		} else if rewritten > 0 {
			logger.Info("Rewrote image references", map[string]interface{}{
				"old":   filename,
				"new":   newFilename,
				"views": rewritten,
			})
		}

		s.cache.DeletePattern("lesson:*")
		s.cache.InvalidateLessonLists()

		filename = newFilename
		currentAbs, err = s.insideUploadDir(filename)
		if err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(currentAbs)
	if err != nil {
		return nil, err
	}

	return &UploadInfo{
		URL:      "/uploads/" + filename,
		Filename: filename,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}, nil
}

func (s *UploadService) renameCandidate(preferred, ext, currentFilename string) string {
	cleaned := utils.GenerateSlug(preferred)
	if cleaned == "" {
		cleaned = uuid.New().String()
	}

	candidate := cleaned + ext
	if candidate == currentFilename || !s.fileExists(candidate) {
		return candidate
	}

	for i := 1; i < 1000; i++ {
		candidate = fmt.Sprintf("%s-%d%s", cleaned, i, ext)
		if candidate == currentFilename || !s.fileExists(candidate) {
			return candidate
		}
	}

	return fmt.Sprintf("%s%s", uuid.New().String(), ext)
}

// Delete removes an upload, refusing while any view still references it.
func (s *UploadService) Delete(filename string) error {
	filename = filepath.Base(strings.TrimSpace(filename))
	if !validator.ValidateImageExtension(filename) {
		return ErrImageNotFound
	}

	abs, err := s.insideUploadDir(filename)
	if err != nil {
		return err
	}

	referenced, err := s.viewRepo.CountByImageURL("/uploads/" + filename)
	if err != nil {
		return err
	}
	if referenced > 0 {
		return ErrImageInUse
	}

	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrImageNotFound
		}
		return err
	}

	logger.Info("Image deleted", map[string]interface{}{"filename": filename})

	return nil
}

func (s *UploadService) insideUploadDir(filename string) (string, error) {
	dirAbs, err := filepath.Abs(s.uploadDir)
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(filepath.Join(s.uploadDir, filename))
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(abs, dirAbs+string(filepath.Separator)) {
		return "", ErrInvalidUploadName
	}

	return abs, nil
}
