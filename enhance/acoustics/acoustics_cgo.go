// Package acoustics binds the proprietary aiCoustics real-time speech
// enhancement library. It is kept separate from the enhance package so
// that the pure-Go framing logic builds and tests without the vendor
// library installed.
package acoustics

/*
#cgo CFLAGS: -I/usr/local/include -I/usr/include
#cgo LDFLAGS: -laicoustics -lm
#include "acoustics_bridge.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"voicekit/enhance"
)

// Engine is one native enhancement instance bound to a fixed
// (sample rate, channels, frame size) configuration. Instances are shared
// between filters through the enhance.Registry and live until process
// shutdown; Close exists for tests and non-registry use.
type Engine struct {
	handle *C.AicEngine
	config enhance.Config
	mu     sync.Mutex

	// chunkPtrs is reused for every process call to avoid per-chunk
	// allocation of the C channel-pointer array.
	chunkPtrs []*C.float
}

// NewEngine constructs a native engine. A missing library or rejected
// license surfaces here and nowhere else; there is no retry.
func NewEngine(licenseKey string, cfg enhance.Config) (*Engine, error) {
	if licenseKey == "" {
		return nil, fmt.Errorf("acoustics: license key is required")
	}

	cKey := C.CString(licenseKey)
	defer C.free(unsafe.Pointer(cKey))

	handle := C.aic_engine_create(cKey, C.int(cfg.Channels), C.int(cfg.SampleRate), C.int(cfg.FrameSize))
	if handle == nil {
		return nil, fmt.Errorf("acoustics: failed to create engine (rate=%d ch=%d frames=%d): library missing or license rejected",
			cfg.SampleRate, cfg.Channels, cfg.FrameSize)
	}

	e := &Engine{
		handle:    handle,
		config:    cfg,
		chunkPtrs: make([]*C.float, cfg.Channels),
	}
	runtime.SetFinalizer(e, (*Engine).Close)
	return e, nil
}

// NewEngineFactory returns an enhance.Factory that binds licenseKey into
// every constructed engine.
func NewEngineFactory(licenseKey string) enhance.Factory {
	return func(cfg enhance.Config) (enhance.Enhancer, error) {
		return NewEngine(licenseKey, cfg)
	}
}

// SetStrength pushes the enhancement strength to the native engine.
func (e *Engine) SetStrength(strength float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return
	}
	C.aic_engine_set_enhancement_strength(e.handle, C.float(strength))
}

// ProcessDeinterleaved enhances one chunk in place. The chunk must have
// exactly the configured channel count and frame size.
func (e *Engine) ProcessDeinterleaved(chunk [][]float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return fmt.Errorf("acoustics: engine is closed")
	}
	if len(chunk) != e.config.Channels {
		return fmt.Errorf("acoustics: chunk has %d channels, engine expects %d", len(chunk), e.config.Channels)
	}
	for c := range chunk {
		if len(chunk[c]) != e.config.FrameSize {
			return fmt.Errorf("acoustics: channel %d has %d samples, engine expects %d", c, len(chunk[c]), e.config.FrameSize)
		}
		e.chunkPtrs[c] = (*C.float)(unsafe.Pointer(&chunk[c][0]))
	}

	rc := C.aic_engine_process_deinterleaved(
		e.handle,
		(**C.float)(unsafe.Pointer(&e.chunkPtrs[0])),
		C.int(e.config.Channels),
		C.int(e.config.FrameSize),
	)
	if rc != 0 {
		return fmt.Errorf("acoustics: process failed with code %d", int(rc))
	}
	return nil
}

// OptimalNumFrames reports the engine's preferred chunk size.
func (e *Engine) OptimalNumFrames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return 0
	}
	return int(C.aic_engine_optimal_num_frames(e.handle))
}

// OptimalSampleRate reports the engine's preferred sample rate.
func (e *Engine) OptimalSampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return 0
	}
	return int(C.aic_engine_optimal_sample_rate(e.handle))
}

// Latency reports the algorithmic latency in samples at the configured rate.
func (e *Engine) Latency() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == nil {
		return 0
	}
	return int(C.aic_engine_latency(e.handle))
}

// Close releases the native engine. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle != nil {
		C.aic_engine_destroy(e.handle)
		e.handle = nil
	}
	return nil
}
