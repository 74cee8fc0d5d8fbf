package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/pkg/i18n"
	"bloodlink/internal/repository"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ObjectStore is the slice of object storage the archive needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (*url.URL, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket string) ObjectStore {
	return &minioStore{client: client, bucket: bucket}
}

func (m *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	return m.client.PresignedGetObject(ctx, m.bucket, key, ttl, url.Values{})
}

type Workbook struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Archive struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	InventoryWorkbook(ctx context.Context, facility *domain.User, locale string) (*Workbook, error)
	ArchiveInventory(ctx context.Context, facility *domain.User, locale string) (*Archive, error)
}

type service struct {
	unitRepo repository.BloodUnitRepository
	store    ObjectStore
	urlTTL   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewService builds the exporter. store may be nil, in which case archiving is unavailable.
func NewService(unitRepo repository.BloodUnitRepository, store ObjectStore, urlTTL time.Duration, log *zap.Logger) Service {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &service{unitRepo: unitRepo, store: store, urlTTL: urlTTL, log: log.Named("export"), now: time.Now}
}

func (s *service) InventoryWorkbook(ctx context.Context, facility *domain.User, locale string) (*Workbook, error) {
	if facility == nil || !facility.IsFacility() {
		return nil, domain.Permission("only hospitals and blood banks export inventory")
	}

	units, err := s.unitRepo.ListByLocation(ctx, facility.Email)
	if err != nil {
		return nil, domain.Storage(err, "failed to list blood units")
	}

	data, err := buildWorkbook(units, locale)
	if err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}

	return &Workbook{
		Filename:    fmt.Sprintf("inventory-%s.xlsx", s.now().UTC().Format("20060102-150405")),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func (s *service) ArchiveInventory(ctx context.Context, facility *domain.User, locale string) (*Archive, error) {
	if s.store == nil {
		return nil, domain.Storage(fmt.Errorf("object storage disabled"), "archive unavailable")
	}

	wb, err := s.InventoryWorkbook(ctx, facility, locale)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s", facility.ID, wb.Filename)
	if err := s.store.Put(ctx, key, bytes.NewReader(wb.Data), int64(len(wb.Data)), wb.ContentType); err != nil {
		return nil, domain.Storage(err, "failed to upload export")
	}

	link, err := s.store.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, domain.Storage(err, "failed to sign export url")
	}

	s.log.Info("inventory archived", zap.String("facility", facility.Email), zap.String("key", key))
	return &Archive{Key: key, URL: link.String(), ExpiresAt: s.now().Add(s.urlTTL)}, nil
}

func buildWorkbook(units []domain.BloodUnit, locale string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	t := func(key string) string { return i18n.Translate(locale, "export."+key) }

	sheet := t("sheet")
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := []any{t("blood_type"), t("donation_type"), t("units"), t("collection_date"), t("expiration_date")}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	sorted := make([]domain.BloodUnit, len(units))
	copy(sorted, units)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ExpirationDate.Before(sorted[j].ExpirationDate) })

	for i, u := range sorted {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			u.BloodType,
			i18n.Label(locale, "donation", string(u.DonationType)),
			u.Units,
			u.CollectionDate.Format("2006-01-02"),
			u.ExpirationDate.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := writeSummary(f, units, locale, t("summary")); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, units []domain.BloodUnit, locale, sheet string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	var summary domain.InventorySummary
	for _, u := range units {
		summary.Add(u.DonationType, u.Units)
	}

	rows := [][]any{
		{i18n.Label(locale, "donation", string(domain.DonationWholeBlood)), summary.WholeBlood},
		{i18n.Label(locale, "donation", string(domain.DonationPlasma)), summary.Plasma},
		{i18n.Label(locale, "donation", string(domain.DonationRedBloodCells)), summary.RedBloodCells},
		{i18n.Translate(locale, "export.total"), summary.Total()},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
