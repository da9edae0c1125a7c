//go:build darwin && cgo

package engine

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=10.15
#cgo LDFLAGS: -framework Vision -framework Foundation -framework CoreGraphics

#import <Foundation/Foundation.h>
#import <Vision/Vision.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	char  *text;
	double confidence;
	double x, y, w, h;
} mo_fragment;

typedef struct {
	mo_fragment *items;
	int          count;
	char        *error;
} mo_result;

static mo_result mo_recognize(const void *data, int length, const char *languages, int fast, int correction) {
	mo_result res = {0};
	@autoreleasepool {
		NSData *imageData = [NSData dataWithBytes:data length:length];
		VNImageRequestHandler *handler = [[VNImageRequestHandler alloc] initWithData:imageData options:@{}];
		VNRecognizeTextRequest *request = [[VNRecognizeTextRequest alloc] init];
		request.recognitionLevel = fast ? VNRequestTextRecognitionLevelFast : VNRequestTextRecognitionLevelAccurate;
		request.usesLanguageCorrection = correction ? YES : NO;
		if (languages != NULL && strlen(languages) > 0) {
			NSString *langs = [NSString stringWithUTF8String:languages];
			request.recognitionLanguages = [langs componentsSeparatedByString:@","];
		}

		NSError *err = nil;
		if (![handler performRequests:@[request] error:&err]) {
			const char *msg = err != nil ? [[err localizedDescription] UTF8String] : "text recognition failed";
			res.error = strdup(msg);
			return res;
		}

		NSArray<VNRecognizedTextObservation *> *observations = request.results;
		NSUInteger n = observations.count;
		if (n == 0) {
			return res;
		}
		res.items = calloc(n, sizeof(mo_fragment));
		int i = 0;
		for (VNRecognizedTextObservation *obs in observations) {
			VNRecognizedText *top = [[obs topCandidates:1] firstObject];
			if (top == nil) {
				continue;
			}
			CGRect box = obs.boundingBox;
			res.items[i].text = strdup([top.string UTF8String]);
			res.items[i].confidence = top.confidence;
			res.items[i].x = box.origin.x;
			res.items[i].y = box.origin.y;
			res.items[i].w = box.size.width;
			res.items[i].h = box.size.height;
			i++;
		}
		res.count = i;
	}
	return res;
}

static void mo_free(mo_result res) {
	for (int i = 0; i < res.count; i++) {
		free(res.items[i].text);
	}
	free(res.items);
	free(res.error);
}
*/
import "C"

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"unsafe"

	"github.com/MeKo-Tech/macocr/internal/lines"
)

// VisionOptions tunes the Vision text request.
type VisionOptions struct {
	// Fast selects the fast recognition level instead of accurate.
	Fast bool
	// LanguageCorrection enables Vision's language model post-correction.
	LanguageCorrection bool
}

// DefaultVisionOptions matches the settings the service has always used.
func DefaultVisionOptions() VisionOptions {
	return VisionOptions{LanguageCorrection: true}
}

// Vision recognizes text with the macOS Vision framework.
type Vision struct {
	opts VisionOptions
}

// NewVision returns a Vision engine.
func NewVision(opts VisionOptions) (*Vision, error) {
	return &Vision{opts: opts}, nil
}

// Name implements Engine.
func (v *Vision) Name() string { return "vision" }

// Recognize implements Engine. The Vision call itself cannot be interrupted,
// so ctx is only checked before it starts.
func (v *Vision) Recognize(ctx context.Context, img image.Image, languages []string) ([]lines.Fragment, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image for recognition: %w", err)
	}
	data := buf.Bytes()
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	cData := C.CBytes(data)
	defer C.free(cData)
	cLangs := C.CString(strings.Join(languages, ","))
	defer C.free(unsafe.Pointer(cLangs))

	res := C.mo_recognize(cData, C.int(len(data)), cLangs, boolToC(v.opts.Fast), boolToC(v.opts.LanguageCorrection))
	defer C.mo_free(res)

	if res.error != nil {
		return nil, errors.New(C.GoString(res.error))
	}
	if res.count == 0 {
		return []lines.Fragment{}, nil
	}

	items := unsafe.Slice(res.items, int(res.count))
	frags := make([]lines.Fragment, 0, len(items))
	for _, it := range items {
		frags = append(frags, lines.Fragment{
			Text:       C.GoString(it.text),
			Confidence: float64(it.confidence),
			BBox:       lines.BBox{float64(it.x), float64(it.y), float64(it.w), float64(it.h)},
		})
	}
	return normalizeText(frags), nil
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
