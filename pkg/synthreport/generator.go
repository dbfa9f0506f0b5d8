// Package synthreport generates structurally valid synthetic crash
// reports: plausible process metadata, an ordered stack, and a binary
// image table that covers every frame. Generation is a pure function of
// its random source, so a fixed seed reproduces the same report
// byte for byte. Host metadata is injected, never queried, which keeps
// the generator deterministic under test.
package synthreport

import (
	"fmt"
	"math/rand"
	"time"
)

// Address space constants for the synthesized values. Addresses sit in
// the canonical high range used by system frameworks and are always
// rendered as fixed-width hex.
const (
	frameworkBase = uint64(0x7ff800000000)
	frameworkSpan = uint64(0x0000ffffffff)
	imageStride   = uint64(0x10000000)

	minFrames = 5
	maxFrames = 14
)

// HostInfo carries the header metadata sourced from the host
// environment by the caller.
type HostInfo struct {
	OSVersion string
	OSBuild   string
	BootTime  time.Time
}

// DefaultHost returns placeholder header metadata for callers without
// real host values to inject.
func DefaultHost() HostInfo {
	return HostInfo{OSVersion: "macOS 14.6.1", OSBuild: "23G93"}
}

// StackFrame is one entry in the crashed thread's backtrace.
type StackFrame struct {
	Index        int    `json:"index"`
	ImageName    string `json:"image_name"`
	Address      string `json:"address"`
	SymbolName   string `json:"symbol_name"`
	SymbolOffset int    `json:"symbol_offset"`
}

// BinaryImage is one entry in the report's binary image table.
type BinaryImage struct {
	ImageName string `json:"image_name"`
	LoadStart string `json:"load_start"`
	LoadEnd   string `json:"load_end"`
	UUID      string `json:"uuid"`
	Path      string `json:"path"`
}

// Report is one synthetic diagnostic document.
type Report struct {
	ProcessName   string        `json:"process_name"`
	ProcessID     int           `json:"process_id"`
	TimestampUTC  time.Time     `json:"timestamp_utc"`
	ExceptionKind string        `json:"exception_kind"`
	CrashAddress  string        `json:"crash_address"`
	StackFrames   []StackFrame  `json:"stack_frames"`
	BinaryImages  []BinaryImage `json:"binary_images"`

	OSVersion string        `json:"os_version"`
	OSBuild   string        `json:"os_build"`
	Uptime    time.Duration `json:"uptime"`
}

// Options configures one generation.
type Options struct {
	// Seed, when non-nil, makes generation deterministic.
	Seed *int64
	// Now anchors the crash timestamp window; zero means time.Now.
	Now time.Time
	// Host supplies the injected header metadata.
	Host HostInfo
}

// Generate produces one structurally valid synthetic report. The
// returned report always satisfies Validate.
func Generate(opts Options) (*Report, error) {
	var rng *rand.Rand
	if opts.Seed != nil {
		rng = rand.New(rand.NewSource(*opts.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	r := &Report{
		ProcessName:   processCatalog[rng.Intn(len(processCatalog))],
		ProcessID:     200 + rng.Intn(60000),
		ExceptionKind: exceptionCatalog[rng.Intn(len(exceptionCatalog))],
		CrashAddress:  hexAddr(frameworkBase + uint64(rng.Int63n(int64(frameworkSpan)))),
		OSVersion:     opts.Host.OSVersion,
		OSBuild:       opts.Host.OSBuild,
	}

	// Crash timestamp within a bounded recent window.
	r.TimestampUTC = now.Add(-time.Duration(rng.Int63n(int64(30 * time.Minute)))).Truncate(time.Second)

	if !opts.Host.BootTime.IsZero() && opts.Host.BootTime.Before(r.TimestampUTC) {
		r.Uptime = r.TimestampUTC.Sub(opts.Host.BootTime).Truncate(time.Second)
	}

	// Frame 0 is the crash site; later frames alternate across the
	// image catalog with monotonically increasing indices.
	frameCount := minFrames + rng.Intn(maxFrames-minFrames+1)
	used := make(map[string]imageTemplate)
	for i := 0; i < frameCount; i++ {
		img := imageCatalog[rng.Intn(len(imageCatalog))]
		used[img.name] = img
		frame := StackFrame{
			Index:        i,
			ImageName:    img.name,
			Address:      hexAddr(frameworkBase + uint64(rng.Int63n(int64(frameworkSpan)))),
			SymbolName:   symbolCatalog[rng.Intn(len(symbolCatalog))],
			SymbolOffset: 16 + rng.Intn(4080),
		}
		r.StackFrames = append(r.StackFrames, frame)
	}

	// One image table entry per distinct referenced image, laid out on
	// non-overlapping strides in catalog order so output is stable.
	for i, img := range imageCatalog {
		if _, ok := used[img.name]; !ok {
			continue
		}
		start := frameworkBase + uint64(i)*imageStride + uint64(rng.Int63n(0x100000))
		size := uint64(0x100000) + uint64(rng.Int63n(0x400000))
		r.BinaryImages = append(r.BinaryImages, BinaryImage{
			ImageName: img.name,
			LoadStart: hexAddr(start),
			LoadEnd:   hexAddr(start + size),
			UUID:      uuidString(rng),
			Path:      img.path,
		})
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("generated report failed validation: %w", err)
	}
	return r, nil
}

// hexAddr renders addr as fixed-width 16-digit hex.
func hexAddr(addr uint64) string {
	return fmt.Sprintf("0x%016x", addr)
}

// uuidString renders a UUID-shaped identifier from the generator's own
// random source, keeping output a pure function of the seed.
func uuidString(rng *rand.Rand) string {
	var b [16]byte
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	// Version and variant bits, so the identifier parses as a v4 UUID.
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08X-%04X-%04X-%04X-%012X",
		b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
