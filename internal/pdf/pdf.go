// Package pdf pulls embedded raster images out of PDF files so they can be
// recognized like any other image.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/macocr/internal/imageio"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// maxSelectedPages bounds how many page numbers a range selection may expand to.
const maxSelectedPages = 10000

// Credentials unlock encrypted PDFs.
type Credentials struct {
	UserPassword  string
	OwnerPassword string
}

// Page holds the images found on one page.
type Page struct {
	Number int
	Images []image.Image
}

// ExtractImages extracts every embedded image from the selected pages.
// pageRange uses the "1-3,5" syntax; empty selects all pages.
func ExtractImages(ctx context.Context, filename, pageRange string, creds *Credentials) ([]Page, error) {
	pageNumbers, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "macocr-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, n := range pageNumbers {
			pageStrings[i] = strconv.Itoa(n)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, configuration(creds)); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	byPage, err := collectExtractedImages(tempDir, base)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}

	pages := make([]Page, 0, len(byPage))
	for n, imgs := range byPage {
		pages = append(pages, Page{Number: n, Images: imgs})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

func configuration(creds *Credentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if creds != nil {
		conf.UserPW = creds.UserPassword
		conf.OwnerPW = creds.OwnerPassword
	}
	return conf
}

// IsPasswordError reports whether err looks like an encryption failure.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"password", "encrypted", "decrypt", "authentication"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// collectExtractedImages walks dir and groups decodable images by page number.
func collectExtractedImages(dir, base string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		pageNum, err := parsePageFromFilename(info.Name(), base)
		if err != nil {
			return nil
		}

		img, _, err := imageio.LoadFile(path)
		if err != nil {
			return nil
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from an extracted image
// name. pdfcpu writes <base>_<page>_<id>.<ext>; the page_<page>_... form is
// accepted as well.
func parsePageFromFilename(filename, base string) (int, error) {
	var rest string
	switch {
	case base != "" && strings.HasPrefix(filename, base+"_"):
		rest = strings.TrimPrefix(filename, base+"_")
	case strings.HasPrefix(filename, "page_"):
		rest = strings.TrimPrefix(filename, "page_")
	default:
		return 0, errors.New("not a page file")
	}

	token, _, _ := strings.Cut(rest, "_")
	token = strings.TrimSuffix(token, filepath.Ext(token))
	if token == "" {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(token)
	if err != nil || pageNum < 1 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// parsePageRange parses a page range string like "1-5" or "1,3,5".
func parsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
		if len(pages) > maxSelectedPages {
			return nil, fmt.Errorf("page range selects more than %d pages", maxSelectedPages)
		}
	}
	return pages, nil
}

// parseRangeToken parses either a single page token ("3") or a range ("1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 {
			return nil, fmt.Errorf("page numbers start at 1, got %d", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		if end-start >= maxSelectedPages {
			return nil, fmt.Errorf("page range %s spans more than %d pages", part, maxSelectedPages)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	if page < 1 {
		return nil, fmt.Errorf("page numbers start at 1, got %d", page)
	}
	return []int{page}, nil
}
