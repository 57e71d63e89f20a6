package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var _ Store = (*Cloudinary)(nil)

// Cloudinary stores media in a Cloudinary account.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	logger *slog.Logger
}

// NewCloudinary connects with a CLOUDINARY_URL of the form
// cloudinary://<api_key>:<api_secret>@<cloud_name>.
func NewCloudinary(cloudinaryURL string, logger *slog.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("storage: configuring cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, logger: logger}, nil
}

func (c *Cloudinary) Put(ctx context.Context, localPath, publicID string, kind Kind) (Object, error) {
	if publicID == "" {
		return Object{}, ErrEmptyPublicID
	}

	res, err := c.cld.Upload.Upload(ctx, localPath, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "auto",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage: uploading %s to cloudinary: %w", publicID, err)
	}
	// The SDK reports API-level failures in the body, not as an error.
	if res.Error.Message != "" {
		return Object{}, fmt.Errorf("storage: cloudinary rejected %s: %s", publicID, res.Error.Message)
	}

	c.logger.Debug("uploaded to cloudinary",
		slog.String("publicId", res.PublicID),
		slog.String("resourceType", res.ResourceType),
		slog.Int("bytes", res.Bytes),
	)
	return Object{URL: res.SecureURL, PublicID: res.PublicID, Kind: kind}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, publicID string, kind Kind) error {
	if publicID == "" {
		return nil
	}
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: string(kind),
	})
	if err != nil {
		return fmt.Errorf("storage: deleting %s from cloudinary: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("storage: cloudinary refused to delete %s: %s", publicID, res.Error.Message)
	}
	// "not found" is fine: the object is gone either way.
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("storage: deleting %s from cloudinary: result %q", publicID, res.Result)
	}
	return nil
}
