package logger

import "go.uber.org/zap"

// Field keys shared by the frame loop, the frame ring and the GPU backends so
// a log file can be filtered by frame or fence.
const (
	FrameKey = "frame"
	FenceKey = "fence"
	SlotKey  = "slot"
)

// Frame tags an entry with the frame number.
func Frame(n uint64) zap.Field { return zap.Uint64(FrameKey, n) }

// Fence tags an entry with a fence value.
func Fence(v uint64) zap.Field { return zap.Uint64(FenceKey, v) }

// Slot tags an entry with a frame resource index.
func Slot(i int) zap.Field { return zap.Int(SlotKey, i) }
