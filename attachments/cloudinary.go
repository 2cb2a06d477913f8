package attachments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore persists blobs as raw Cloudinary assets under a folder
// prefix. Used when CLOUDINARY_URL is configured; DiskStore otherwise.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	client *http.Client
}

func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("attachments: cloudinary init: %w", err)
	}
	if folder == "" {
		folder = "chat_attachments"
	}
	return &CloudinaryStore{cld: cld, folder: folder, client: http.DefaultClient}, nil
}

func (c *CloudinaryStore) publicID(key string) string {
	return c.folder + "/" + key
}

func (c *CloudinaryStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := c.cld.Upload.Upload(ctx, io.LimitReader(r, size), uploader.UploadParams{
		PublicID:     c.publicID(key),
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("attachments: cloudinary upload: %w", err)
	}
	return nil
}

func (c *CloudinaryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	asset, err := c.cld.Admin.Asset(ctx, admin.AssetParams{
		PublicID:  c.publicID(key),
		AssetType: api.File,
	})
	if err != nil {
		return nil, fmt.Errorf("attachments: cloudinary lookup: %w", err)
	}
	if asset.SecureURL == "" {
		return nil, ErrNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.SecureURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attachments: cloudinary fetch: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("attachments: cloudinary fetch: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *CloudinaryStore) Delete(ctx context.Context, key string) error {
	_, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     c.publicID(key),
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("attachments: cloudinary destroy: %w", err)
	}
	return nil
}

func (c *CloudinaryStore) List(ctx context.Context) ([]BlobInfo, error) {
	res, err := c.cld.Admin.Assets(ctx, admin.AssetsParams{
		AssetType:  api.File,
		Prefix:     c.folder + "/",
		MaxResults: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("attachments: cloudinary list: %w", err)
	}
	infos := make([]BlobInfo, 0, len(res.Assets))
	for _, a := range res.Assets {
		infos = append(infos, BlobInfo{
			Key:       strings.TrimPrefix(a.PublicID, c.folder+"/"),
			CreatedAt: a.CreatedAt,
		})
	}
	return infos, nil
}
