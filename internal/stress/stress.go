package stress

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blkio/bcache"
	"github.com/blkio/bcache/device"
)

var ErrMismatch = errors.New("block holds another block's contents")

type Result struct {
	Elapsed time.Duration
	Ops     int64
	Writes  int64
	Stats   bcache.Stats
	Locks   []bcache.LockStat
}

func (r Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// Runner hammers one cache with concurrent readers and writers and checks that every block
// still holds what was last written to it.
type Runner struct {
	cfg    Config
	cache  *bcache.Cache
	sums   *device.Checksummed
	closer func() error

	// writes counts successful writes per block.
	writes []atomic.Uint64
}

func New(cfg Config, logger *slog.Logger) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	hasher, err := hasherByName(cfg.Hasher)
	if err != nil {
		return nil, err
	}

	base, closer, err := newDevice(cfg)
	if err != nil {
		return nil, err
	}
	var dev device.Device = base
	if cfg.Device != nil && cfg.Device.OpsPerSec > 0 {
		dev = device.NewThrottled(dev, cfg.Device.OpsPerSec, cfg.Device.Burst)
	}
	sums := device.NewChecksummed(dev)

	cache, err := bcache.New(&bcache.Options{
		Buckets:      cfg.Buckets,
		Buffers:      cfg.Buffers,
		BlockSize:    cfg.BlockSize,
		Device:       sums,
		Hasher:       hasher,
		StatsEnabled: true,
		Logger:       bcache.NewSlogLogger(logger),
	})
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Runner{
		cfg:    cfg,
		cache:  cache,
		sums:   sums,
		closer: closer,
		writes: make([]atomic.Uint64, int(cfg.Devices)*int(cfg.Blocks)),
	}, nil
}

func newDevice(cfg Config) (device.Device, func() error, error) {
	if cfg.Device == nil || cfg.Device.ImageDir == "" {
		return device.NewMemory(cfg.BlockSize, cfg.Blocks), func() error { return nil }, nil
	}

	if err := os.MkdirAll(cfg.Device.ImageDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create image dir: %w", err)
	}
	f := device.NewFile(cfg.BlockSize, cfg.Blocks)
	for dev := uint32(0); dev < cfg.Devices; dev++ {
		path := filepath.Join(cfg.Device.ImageDir, fmt.Sprintf("dev%d.img", dev))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = f.Close()
			return nil, nil, fmt.Errorf("remove old image: %w", err)
		}
		if err := f.Attach(dev, path); err != nil {
			_ = f.Close()
			return nil, nil, err
		}
	}
	return f, func() error {
		return errors.Join(f.Sync(), f.Close())
	}, nil
}

func (r *Runner) Cache() *bcache.Cache {
	return r.cache
}

func (r *Runner) Close() error {
	return r.closer()
}

// Run can be called repeatedly. Every Result reports the traffic of its own run, the verification
// reads at the end excluded.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	var ops, writes atomic.Int64

	r.cache.ResetStats()

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	perWorker := r.cfg.Ops / r.cfg.Workers
	for w := 0; w < r.cfg.Workers; w++ {
		rng := rand.New(rand.NewPCG(r.cfg.Seed, uint64(w)))
		eg.Go(func() error {
			for i := 0; i < perWorker; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				wrote, err := r.step(ctx, rng)
				if err != nil {
					return err
				}
				ops.Add(1)
				if wrote {
					writes.Add(1)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, fmt.Errorf("run workers: %w", err)
	}
	res := Result{
		Elapsed: time.Since(start),
		Ops:     ops.Load(),
		Writes:  writes.Load(),
		Stats:   r.cache.Stats(),
		Locks:   r.cache.LockStats(),
	}

	if err := r.verify(ctx); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (r *Runner) step(ctx context.Context, rng *rand.Rand) (bool, error) {
	dev := uint32(rng.IntN(int(r.cfg.Devices)))
	blockno := uint32(rng.IntN(int(r.cfg.Blocks)))

	b, err := r.cache.Read(ctx, dev, blockno)
	if err != nil {
		return false, err
	}
	defer r.cache.Release(b)

	if err := checkHeader(b); err != nil {
		return false, err
	}

	if rng.Float64() < r.cfg.PinRatio {
		r.cache.Pin(b)
		defer r.cache.Unpin(b)
	}

	if rng.Float64() >= r.cfg.WriteRatio {
		return false, nil
	}

	data := b.Data()
	binary.LittleEndian.PutUint32(data[0:], dev)
	binary.LittleEndian.PutUint32(data[4:], blockno)
	binary.LittleEndian.PutUint64(data[8:], binary.LittleEndian.Uint64(data[8:])+1)
	if err := r.cache.Write(ctx, b); err != nil {
		return false, err
	}
	r.writes[r.index(dev, blockno)].Add(1)
	return true, nil
}

func (r *Runner) index(dev, blockno uint32) int {
	return int(dev)*int(r.cfg.Blocks) + int(blockno)
}

func checkHeader(b *bcache.Buf) error {
	data := b.Data()
	if binary.LittleEndian.Uint64(data[8:]) == 0 {
		return nil
	}
	dev := binary.LittleEndian.Uint32(data[0:])
	blockno := binary.LittleEndian.Uint32(data[4:])
	if dev != b.Dev() || blockno != b.BlockNo() {
		return fmt.Errorf("%w: dev %d block %d holds dev %d block %d", ErrMismatch, b.Dev(), b.BlockNo(), dev, blockno)
	}
	return nil
}

// verify reads every block back and compares its write counter with the number of writes.
func (r *Runner) verify(ctx context.Context) error {
	if err := r.cache.Check(); err != nil {
		return fmt.Errorf("check cache: %w", err)
	}

	for dev := uint32(0); dev < r.cfg.Devices; dev++ {
		for blockno := uint32(0); blockno < r.cfg.Blocks; blockno++ {
			b, err := r.cache.Read(ctx, dev, blockno)
			if err != nil {
				return err
			}
			got := binary.LittleEndian.Uint64(b.Data()[8:])
			herr := checkHeader(b)
			r.cache.Release(b)

			if herr != nil {
				return herr
			}
			if want := r.writes[r.index(dev, blockno)].Load(); got != want {
				return fmt.Errorf("dev %d block %d: %d writes recorded, block counts %d", dev, blockno, want, got)
			}
		}
	}
	return nil
}

// Checksums returns the number of blocks whose digest is verified on every device read.
func (r *Runner) Checksums() int {
	return r.sums.Verified()
}

func hasherByName(name string) (bcache.Hasher, error) {
	switch name {
	case "", "packed":
		return bcache.PackedHasher, nil
	case "xxh3":
		return bcache.XXH3Hasher, nil
	case "maphash":
		return bcache.NewMapHasher(), nil
	default:
		return nil, fmt.Errorf("not valid hasher name: %s", name)
	}
}
