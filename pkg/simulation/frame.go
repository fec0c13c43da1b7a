package simulation

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// RenderSink receives the pose of every active boid after each move phase.
type RenderSink interface {
	BeginFrame(tick uint64, n int)
	Publish(i int, pos, forward geometry.Vector3D)
	EndFrame()
}

// BoidPose is what a renderer needs to draw one boid.
type BoidPose struct {
	Index   int
	Pos     geometry.Vector3D
	Forward geometry.Vector3D
}

// Frame is the published state of the flock after one tick.
type Frame struct {
	Tick  uint64
	Boids []BoidPose
}

// FrameRecorder is a RenderSink keeping the last complete frame.
type FrameRecorder struct {
	mu       sync.RWMutex
	building Frame
	latest   Frame
}

// NewFrameRecorder returns an empty recorder.
func NewFrameRecorder() *FrameRecorder {
	return &FrameRecorder{}
}

// BeginFrame starts building the frame of tick in the back buffer.
func (r *FrameRecorder) BeginFrame(tick uint64, n int) {
	r.building.Tick = tick
	if cap(r.building.Boids) < n {
		r.building.Boids = make([]BoidPose, 0, n)
	}
	r.building.Boids = r.building.Boids[:0]
}

// Publish records the pose of the i-th active boid.
func (r *FrameRecorder) Publish(i int, pos, forward geometry.Vector3D) {
	r.building.Boids = append(r.building.Boids, BoidPose{Index: i, Pos: pos, Forward: forward})
}

// EndFrame makes the frame being built the latest one.
func (r *FrameRecorder) EndFrame() {
	r.mu.Lock()
	r.latest, r.building = r.building, r.latest
	r.mu.Unlock()
}

// Latest returns a copy of the last complete frame.
func (r *FrameRecorder) Latest() Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := Frame{Tick: r.latest.Tick, Boids: make([]BoidPose, len(r.latest.Boids))}
	copy(f.Boids, r.latest.Boids)
	return f
}

// Wire layout, protobuf compatible:
//
//	message Vec   { double x = 1; double y = 2; double z = 3; }
//	message Pose  { uint64 index = 1; Vec pos = 2; Vec forward = 3; }
//	message Frame { uint64 tick = 1; repeated Pose boids = 2; }
const (
	fieldFrameTick  protowire.Number = 1
	fieldFrameBoids protowire.Number = 2

	fieldPoseIndex   protowire.Number = 1
	fieldPosePos     protowire.Number = 2
	fieldPoseForward protowire.Number = 3

	fieldVecX protowire.Number = 1
	fieldVecY protowire.Number = 2
	fieldVecZ protowire.Number = 3
)

var errMalformedFrame = errors.New("malformed frame")

// MarshalBinary encodes the frame in the protobuf wire format.
func (f Frame) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 16+len(f.Boids)*64)
	b = protowire.AppendTag(b, fieldFrameTick, protowire.VarintType)
	b = protowire.AppendVarint(b, f.Tick)
	var pose []byte
	for _, p := range f.Boids {
		if p.Index < 0 {
			return nil, fmt.Errorf("negative boid index %d", p.Index)
		}
		pose = pose[:0]
		pose = protowire.AppendTag(pose, fieldPoseIndex, protowire.VarintType)
		pose = protowire.AppendVarint(pose, uint64(p.Index))
		pose = appendVec(pose, fieldPosePos, p.Pos)
		pose = appendVec(pose, fieldPoseForward, p.Forward)

		b = protowire.AppendTag(b, fieldFrameBoids, protowire.BytesType)
		b = protowire.AppendBytes(b, pose)
	}
	return b, nil
}

func appendVec(b []byte, num protowire.Number, v geometry.Vector3D) []byte {
	var vec []byte
	for i, c := range [3]float64{v.X, v.Y, v.Z} {
		vec = protowire.AppendTag(vec, fieldVecX+protowire.Number(i), protowire.Fixed64Type)
		vec = protowire.AppendFixed64(vec, math.Float64bits(c))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, vec)
}

// UnmarshalBinary decodes a frame written by MarshalBinary. Unknown fields
// are skipped.
func (f *Frame) UnmarshalBinary(b []byte) error {
	*f = Frame{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldFrameTick && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			f.Tick = v
			return n, nil
		case num == fieldFrameBoids && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			p, err := unmarshalPose(v)
			if err != nil {
				return 0, err
			}
			f.Boids = append(f.Boids, p)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

func unmarshalPose(b []byte) (BoidPose, error) {
	var p BoidPose
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldPoseIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Index = int(v)
			return n, nil
		case (num == fieldPosePos || num == fieldPoseForward) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			vec, err := unmarshalVec(v)
			if err != nil {
				return 0, err
			}
			if num == fieldPosePos {
				p.Pos = vec
			} else {
				p.Forward = vec
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return p, err
}

func unmarshalVec(b []byte) (geometry.Vector3D, error) {
	var v geometry.Vector3D
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.Fixed64Type || num < fieldVecX || num > fieldVecZ {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		bits, n := protowire.ConsumeFixed64(b)
		c := math.Float64frombits(bits)
		switch num {
		case fieldVecX:
			v.X = c
		case fieldVecY:
			v.Y = c
		case fieldVecZ:
			v.Z = c
		}
		return n, nil
	})
	return v, err
}

// walk calls fn for every field of a message. fn consumes the value and
// returns its length, negative on a protowire error.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformedFrame, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: %v", errMalformedFrame, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
