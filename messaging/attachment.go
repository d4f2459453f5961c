////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messaging

import (
	"image"
	"image/jpeg"

	// Registers the decoders for the preview-able attachment types.
	_ "image/gif"
	_ "image/png"

	"os"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

const (
	// previewMaxDim bounds both preview dimensions; aspect ratio is kept.
	previewMaxDim = 320

	previewFilePattern = "msg-preview-*.jpg"
	previewJpegQuality = 80
)

// makePreview generates an on-disk preview for the attachment so the message
// can be displayed before the upload completes. Only image attachments get a
// preview; everything else is a no-op. The preview file must later be
// released with releasePreview.
func makePreview(att *Attachment) error {
	if att == nil || !strings.HasPrefix(att.Type, "image/") {
		return nil
	}

	f, err := os.Open(att.Path)
	if err != nil {
		return errors.WithMessagef(err,
			"failed to open attachment %q for preview", att.Name)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return errors.WithMessagef(err,
			"failed to decode attachment %q for preview", att.Name)
	}

	thumb := resize.Thumbnail(
		previewMaxDim, previewMaxDim, img, resize.Lanczos3)

	out, err := os.CreateTemp("", previewFilePattern)
	if err != nil {
		return errors.WithMessage(err, "failed to create preview file")
	}
	defer out.Close()

	opts := &jpeg.Options{Quality: previewJpegQuality}
	if err = jpeg.Encode(out, thumb, opts); err != nil {
		os.Remove(out.Name())
		return errors.WithMessagef(err,
			"failed to encode preview for attachment %q", att.Name)
	}

	att.PreviewPath = out.Name()
	return nil
}

// releasePreview deletes the message's preview file, if one was generated.
// Safe to call more than once.
func releasePreview(msg *Message) {
	if msg == nil || msg.Attachment == nil ||
		msg.Attachment.PreviewPath == "" {
		return
	}

	if err := os.Remove(msg.Attachment.PreviewPath); err != nil &&
		!os.IsNotExist(err) {
		jww.WARN.Printf("Failed to remove preview %q: %+v",
			msg.Attachment.PreviewPath, err)
	}
	msg.Attachment.PreviewPath = ""
}
