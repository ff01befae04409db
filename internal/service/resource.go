package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/blob"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
)

const defaultContentType = "application/octet-stream"

// ResourceCatalog owns the Resource lifecycle and keeps metadata and blobs
// consistent with each other.
//
// Metadata and blob writes are not transactional. Blobs are always written
// first and linked second, so a crash leaves at worst an unreferenced blob,
// which SweepOrphans later removes.
type ResourceCatalog struct {
	resources repository.ResourceRepository
	blobs     blob.Store
	logger    *slog.Logger
	now       clock
}

// NewResourceCatalog creates a ResourceCatalog. blobs may be any blob.Store
// backend; the catalog only relies on the interface.
func NewResourceCatalog(resources repository.ResourceRepository, blobs blob.Store, logger *slog.Logger) *ResourceCatalog {
	return &ResourceCatalog{
		resources: resources,
		blobs:     blobs,
		logger:    logger,
		now:       time.Now,
	}
}

// ListQuery is the raw filter set accepted at the boundary. Course and
// Subject take one value or a comma-separated set.
type ListQuery struct {
	Course   string
	Subject  string
	Semester *int
	Year     *int
	Privacy  string
	Search   string
}

// splitSet turns "CS101, BCA" into ["CS101", "BCA"], dropping blanks.
func splitSet(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// List returns at most repository.MaxListLimit resources in insertion order.
// A store failure yields an empty list, logged at Warn.
func (c *ResourceCatalog) List(ctx context.Context, q ListQuery) ([]model.Resource, error) {
	filter := repository.ResourceFilter{
		Courses:  splitSet(q.Course),
		Subjects: splitSet(q.Subject),
		Semester: q.Semester,
		Year:     q.Year,
		Search:   strings.TrimSpace(q.Search),
		Limit:    repository.MaxListLimit,
	}
	if q.Privacy != "" {
		p := model.Privacy(q.Privacy)
		if !p.Valid() {
			return nil, apperror.ValidationFailed("privacy", "privacy must be public or private")
		}
		filter.Privacy = &p
	}

	resources, err := c.resources.List(ctx, filter)
	if err != nil {
		c.logger.Warn("listing resources failed, returning empty list", slog.Any("error", err))
		return []model.Resource{}, nil
	}
	return resources, nil
}

// UploadResult describes a stored blob that is not yet linked to a Resource.
type UploadResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Upload stores the bytes under a fresh name derived from originalName's
// extension. It does not create a Resource; callers link the returned
// filename with CreateMetadata.
func (c *ResourceCatalog) Upload(ctx context.Context, originalName, contentType string, r io.Reader) (*UploadResult, error) {
	name := blob.NewName(originalName)

	info, err := c.blobs.Put(ctx, name, contentType, r)
	if err != nil {
		return nil, writeFailure("storing file", err)
	}

	ct := info.ContentType
	if ct == "" {
		ct = contentType
	}
	c.logger.Info("file uploaded", slog.String("filename", name), slog.Int64("size", info.Size))
	return &UploadResult{Filename: name, ContentType: ct, Size: info.Size}, nil
}

// ResourceInput carries the caller-supplied fields of a new Resource.
// Zero values select defaults: Privacy public, Date today.
type ResourceInput struct {
	Title       string
	Subject     *string
	Course      string
	Type        model.ResourceType
	Author      string
	Downloads   int
	Date        string
	Privacy     model.Privacy
	Filename    *string
	Semester    *int
	Year        *int
	Description *string
	College     *string
}

// CreateMetadata inserts a Resource and returns it with its new ID. owner is
// the email of the authenticated caller, or "" for anonymous callers.
//
// A filename must name an existing blob that no other Resource references.
func (c *ResourceCatalog) CreateMetadata(ctx context.Context, in ResourceInput, owner string) (*model.Resource, error) {
	res := &model.Resource{
		Title:       strings.TrimSpace(in.Title),
		Subject:     in.Subject,
		Course:      strings.TrimSpace(in.Course),
		Type:        in.Type,
		Author:      strings.TrimSpace(in.Author),
		Downloads:   in.Downloads,
		Date:        strings.TrimSpace(in.Date),
		Privacy:     in.Privacy,
		Filename:    in.Filename,
		Semester:    in.Semester,
		Year:        in.Year,
		Description: in.Description,
		College:     in.College,
		Owner:       owner,
	}
	if res.Privacy == "" {
		res.Privacy = model.PrivacyPublic
	}
	if res.Date == "" {
		res.Date = c.now.today()
	}

	switch {
	case res.Title == "":
		return nil, apperror.ValidationFailed("title", "title is required")
	case res.Course == "":
		return nil, apperror.ValidationFailed("course", "course is required")
	case res.Author == "":
		return nil, apperror.ValidationFailed("author", "author is required")
	case !res.Type.Valid():
		return nil, apperror.ValidationFailed("type", "type must be one of Notes, PYQ, Summary, Practical")
	case !res.Privacy.Valid():
		return nil, apperror.ValidationFailed("privacy", "privacy must be public or private")
	case res.Downloads < 0:
		return nil, apperror.ValidationFailed("downloads", "downloads must not be negative")
	case res.Privacy == model.PrivacyPrivate && owner == "":
		return nil, errPrivateNeedsOwner
	}

	if res.Filename != nil {
		ct, err := c.linkableBlob(ctx, *res.Filename, "")
		if err != nil {
			return nil, err
		}
		res.ContentType = &ct
	}

	if err := c.resources.Create(ctx, res); err != nil {
		return nil, writeFailure("creating resource", err)
	}

	c.logger.Info("resource created", slog.String("id", res.ID), slog.String("course", res.Course))
	return res, nil
}

// linkableBlob checks that name is a stored blob not referenced by any
// Resource other than selfID, and returns its content type.
func (c *ResourceCatalog) linkableBlob(ctx context.Context, name, selfID string) (string, error) {
	if err := blob.ValidName(name); err != nil {
		return "", err
	}

	info, err := c.blobs.Stat(ctx, name)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.NotFound("file", name)
		}
		return "", writeFailure("checking file", err)
	}

	existing, err := c.resources.GetByFilename(ctx, name)
	switch {
	case err == nil && existing.ID != selfID:
		return "", apperror.Conflict("file", name)
	case err != nil && !errors.Is(err, apperror.ErrNotFound):
		return "", writeFailure("checking file link", err)
	}

	if info.ContentType == "" {
		return defaultContentType, nil
	}
	return info.ContentType, nil
}

// errPrivateNeedsOwner keeps the invariant that every private Resource has
// an owner who can still download it.
var errPrivateNeedsOwner = apperror.ValidationFailed("privacy", "private resources require an authenticated owner")

// authorize returns ErrForbidden unless requester may modify res. A Resource
// with an owner accepts changes from that owner only; ownerless (anonymously
// created, hence public) Resources may be edited by anyone.
func authorize(res *model.Resource, requester string) error {
	if res.Owner != "" && res.Owner != requester {
		return apperror.Forbidden("only the owner may modify this resource")
	}
	return nil
}

// Update merges patch into the Resource on behalf of requester ("" when
// anonymous). Only the fields ResourcePatch enumerates can change; ID and
// owner never do.
//
// Downloads may only grow: a negative value or one below the stored count is
// rejected. The store additionally merges with MAX, so a concurrent download
// increment is never lost.
func (c *ResourceCatalog) Update(ctx context.Context, id, requester string, patch repository.ResourcePatch) error {
	if patch.Empty() {
		return apperror.ValidationFailed("body", "no updatable fields supplied")
	}
	if err := validatePatch(patch); err != nil {
		return err
	}

	current, err := c.resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("resource", id)
		}
		return apperror.StoreUnavailable("loading resource", err)
	}
	if err := authorize(current, requester); err != nil {
		return err
	}
	if patch.Privacy != nil && *patch.Privacy == model.PrivacyPrivate && current.Owner == "" {
		return errPrivateNeedsOwner
	}

	if patch.Downloads != nil && *patch.Downloads < current.Downloads {
		return apperror.ValidationFailed("downloads", "downloads cannot decrease")
	}

	if patch.Filename != nil && (current.Filename == nil || *current.Filename != *patch.Filename) {
		ct, err := c.linkableBlob(ctx, *patch.Filename, id)
		if err != nil {
			return err
		}
		patch.ContentType = &ct
	}

	if err := c.resources.Update(ctx, id, patch); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound("resource", id)
		}
		return writeFailure("updating resource", err)
	}
	return nil
}

func validatePatch(p repository.ResourcePatch) error {
	blank := func(s *string) bool { return s != nil && strings.TrimSpace(*s) == "" }

	switch {
	case blank(p.Title):
		return apperror.ValidationFailed("title", "title must not be empty")
	case blank(p.Course):
		return apperror.ValidationFailed("course", "course must not be empty")
	case blank(p.Author):
		return apperror.ValidationFailed("author", "author must not be empty")
	case p.Type != nil && !p.Type.Valid():
		return apperror.ValidationFailed("type", "type must be one of Notes, PYQ, Summary, Practical")
	case p.Privacy != nil && !p.Privacy.Valid():
		return apperror.ValidationFailed("privacy", "privacy must be public or private")
	case p.Downloads != nil && *p.Downloads < 0:
		return apperror.ValidationFailed("downloads", "downloads must not be negative")
	case p.ContentType != nil:
		return apperror.ValidationFailed("content_type", "content type is derived from the file")
	}
	return nil
}

// Delete removes the Resource's blob, then the Resource, on behalf of
// requester. Either being absent already is fine, so repeated deletes of one
// id all succeed. An owned Resource can only be deleted by its owner.
func (c *ResourceCatalog) Delete(ctx context.Context, id, requester string) error {
	res, err := c.resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return apperror.StoreUnavailable("loading resource", err)
	}
	if err := authorize(res, requester); err != nil {
		return err
	}

	if res.Filename != nil {
		if err := c.blobs.Delete(ctx, *res.Filename); err != nil {
			return writeFailure("deleting file", err)
		}
	}

	if err := c.resources.Delete(ctx, id); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return writeFailure("deleting resource", err)
	}

	c.logger.Info("resource deleted", slog.String("id", id))
	return nil
}

// Download is an open blob ready to stream. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	Filename    string
}

// Download opens the blob named filename for requester ("" when anonymous).
//
// Only blobs linked to a Resource are served, and a private Resource only to
// its owner; every refusal looks like a missing file. A successful open
// counts as one download.
func (c *ResourceCatalog) Download(ctx context.Context, filename, requester string) (*Download, error) {
	if err := blob.ValidName(filename); err != nil {
		return nil, err
	}

	res, err := c.resources.GetByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("file", filename)
		}
		return nil, apperror.StoreUnavailable("loading resource", err)
	}
	if !res.VisibleTo(requester) {
		return nil, apperror.NotFound("file", filename)
	}

	body, info, err := c.blobs.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("file", filename)
		}
		return nil, apperror.StoreUnavailable("opening file", err)
	}

	ct := info.ContentType
	if res.ContentType != nil && *res.ContentType != "" {
		ct = *res.ContentType
	}
	if ct == "" {
		ct = defaultContentType
	}

	if err := c.resources.IncrementDownloads(ctx, res.ID); err != nil {
		c.logger.Warn("counting download failed",
			slog.String("id", res.ID),
			slog.Any("error", err),
		)
	}

	return &Download{Body: body, ContentType: ct, Size: info.Size, Filename: filename}, nil
}

// SweepOrphans deletes blobs that no Resource references and that are older
// than grace, returning how many were removed. grace keeps freshly uploaded
// blobs alive until their metadata arrives.
func (c *ResourceCatalog) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	infos, err := c.blobs.List(ctx)
	if err != nil {
		return 0, err
	}
	// Read references after listing blobs: a blob linked in between is then
	// seen as referenced, never swept.
	refs, err := c.resources.ReferencedFilenames(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := c.now().Add(-grace)
	removed := 0
	for _, info := range infos {
		if _, ok := refs[info.Name]; ok {
			continue
		}
		if !info.ModTime.IsZero() && info.ModTime.After(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := c.blobs.Delete(ctx, info.Name); err != nil {
			c.logger.Warn("deleting orphan blob failed", slog.String("filename", info.Name), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info("orphan blobs removed", slog.Int("count", removed))
	}
	return removed, nil
}
