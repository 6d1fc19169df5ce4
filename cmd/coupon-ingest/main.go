// Command coupon-ingest imports bulk campaign coupon codes from gzipped code
// dumps. Marketing exports are unreliable, so a code is accepted only when it
// appears in at least two of the provided files. Bloom filters keep the
// cross-file check in memory even for dumps with hundreds of millions of
// lines.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/shopkart/promo-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minCodeLen    = 8
	maxCodeLen    = 12
)

const insertCampaignCouponSQL = `INSERT INTO coupons (id, code, description,
		discount_type, value, starts_at, ends_at, usage_limit, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'active')
	ON CONFLICT (code) DO NOTHING`

// campaign describes the coupon template applied to every accepted code.
type campaign struct {
	name         string
	discountType string
	value        decimal.Decimal
	usageLimit   int
	validDays    int
}

func main() {
	var (
		dataDir      string
		databaseURL  string
		campaignName string
		discountType string
		value        string
		usageLimit   int
		validDays    int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing .gz code dump files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&campaignName, "campaign", "bulk-import", "campaign name recorded in the coupon description")
	flag.StringVar(&discountType, "discount-type", "percentage", "discount type for imported codes")
	flag.StringVar(&value, "value", "10", "discount value for imported codes")
	flag.IntVar(&usageLimit, "usage-limit", 1, "usage limit per imported code (0 = unlimited)")
	flag.IntVar(&validDays, "valid-days", 90, "validity period in days from import")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	discountValue, err := decimal.NewFromString(value)
	if err != nil {
		slog.Error("invalid discount value", slog.String("value", value))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c := campaign{
		name:         campaignName,
		discountType: discountType,
		value:        discountValue,
		usageLimit:   usageLimit,
		validDays:    validDays,
	}
	if err := run(ctx, dataDir, databaseURL, c); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, c campaign) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list code dump files")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least 2 dump files for cross-validation, found %d", len(files))
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: cross-validating codes")

	codes, err := crossValidate(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "cross-validate codes")
	}

	slog.Info("accepted codes", slog.Int("count", len(codes)))

	if len(codes) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	return importCodes(ctx, pool, codes, c)
}

// buildFilters streams every file once, concurrently, producing a bloom
// filter of its well-formed codes.
func buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			var seen uint64

			err := streamCodes(ctx, path, func(code string) {
				filter.AddString(code)
				seen++
				if seen%progressEvery == 0 {
					slog.Info("pass 1 progress", slog.Int("file", i+1), slog.Uint64("codes", seen))
				}
			})
			if err != nil {
				return errors.Wrapf(err, "filter file %s", path)
			}

			slog.Info("pass 1 file done", slog.Int("file", i+1), slog.Uint64("codes", seen))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// crossValidate re-streams each file and keeps codes the OTHER files' filters
// also contain. Per-file hit masks are merged so a code counts once per file
// it appeared in, and survives with 2 or more bits set.
func crossValidate(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	masks := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			hits := make(map[string]uint)
			bit := uint(1) << uint(i)

			err := streamCodes(ctx, path, func(code string) {
				for j, f := range filters {
					if j == i {
						continue
					}
					if f.TestString(code) {
						hits[code] |= bit
						break
					}
				}
			})
			if err != nil {
				return errors.Wrapf(err, "scan file %s", path)
			}

			slog.Info("pass 2 file done", slog.Int("file", i+1), slog.Int("candidates", len(hits)))
			masks[i] = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, m := range masks {
		for code, mask := range m {
			merged[code] |= mask
		}
	}

	var accepted []string
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			accepted = append(accepted, code)
		}
	}
	return accepted, nil
}

// streamCodes decompresses path and calls fn for each well-formed code line.
func streamCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := scanner.Text()
		if len(code) >= minCodeLen && len(code) <= maxCodeLen {
			fn(code)
		}
	}
	return errors.Wrapf(scanner.Err(), "scan %s", path)
}

// importCodes inserts one coupon row per accepted code. Existing codes are
// left untouched so re-running an import is safe.
func importCodes(ctx context.Context, pool *pgxpool.Pool, codes []string, c campaign) error {
	slog.Info("importing codes", slog.Int("count", len(codes)), slog.String("campaign", c.name))

	startsAt := time.Now()
	endsAt := startsAt.AddDate(0, 0, c.validDays)
	description := "Campaign " + c.name

	for i, code := range codes {
		_, err := pool.Exec(ctx, insertCampaignCouponSQL,
			uuid.New().String(), code, description,
			c.discountType, c.value, startsAt, endsAt, c.usageLimit,
		)
		if err != nil {
			return errors.Wrapf(err, "insert coupon %s", code)
		}

		if (i+1)%1000 == 0 || i+1 == len(codes) {
			slog.Info("import progress", slog.Int("written", i+1), slog.Int("total", len(codes)))
		}
	}

	return nil
}
