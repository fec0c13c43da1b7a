package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrRejected is returned by the FlockActor client helpers when the actor
// refused a request.
var ErrRejected = errors.New("request rejected by flock actor")

// FlockActor owns a Flock and serializes every access to it through its
// mailbox, so ticks and live edits never race.
//
// Protocol:
//
//	*durationpb.Duration  one tick of that dt        -> *structpb.Struct report
//	*wrapperspb.Int64Value SetActiveCount            -> *wrapperspb.Int64Value
//	*structpb.Struct       Params.Apply by name      -> *emptypb.Empty
//	*emptypb.Empty         latest frame              -> *wrapperspb.BytesValue
//
// A refused request is answered with a *wrapperspb.StringValue error text.
type FlockActor struct {
	flock    *Flock
	recorder *FrameRecorder
	last     TickReport
}

var _ actor.Actor = (*FlockActor)(nil)

// NewFlockActor wraps flock. recorder may be nil when the flock has no
// FrameRecorder sink; frames are then empty.
func NewFlockActor(flock *Flock, recorder *FrameRecorder) *FlockActor {
	return &FlockActor{flock: flock, recorder: recorder}
}

func (a *FlockActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("flock of %d boids ready", a.flock.Total())
	return nil
}

func (a *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {

	case *goaktpb.PostStart:
		ctx.Logger().Infof("%s started with %d active boids", ctx.Self().Name(), a.flock.ActiveCount())

	case *durationpb.Duration:
		if err := msg.CheckValid(); err != nil {
			a.reject(ctx, err)
			return
		}
		dt := msg.AsDuration().Seconds()
		if dt <= 0 {
			a.reject(ctx, fmt.Errorf("dt must be > 0, got %v", dt))
			return
		}
		a.last = a.flock.Update(dt)
		report, err := reportToStruct(a.last)
		if err != nil {
			a.reject(ctx, err)
			return
		}
		ctx.Response(report)

	case *wrapperspb.Int64Value:
		if err := a.flock.SetActiveCount(int(msg.GetValue())); err != nil {
			a.reject(ctx, err)
			return
		}
		ctx.Response(wrapperspb.Int64(int64(a.flock.ActiveCount())))

	case *structpb.Struct:
		values := make(map[string]float64, len(msg.GetFields()))
		for name, v := range msg.GetFields() {
			n, ok := v.GetKind().(*structpb.Value_NumberValue)
			if !ok {
				a.reject(ctx, fmt.Errorf("parameter %q is not a number", name))
				return
			}
			values[name] = n.NumberValue
		}
		if err := a.flock.Params().Apply(values); err != nil {
			a.reject(ctx, err)
			return
		}
		ctx.Logger().Debugf("params updated: %v", values)
		ctx.Response(&emptypb.Empty{})

	case *emptypb.Empty:
		var frame Frame
		if a.recorder != nil {
			frame = a.recorder.Latest()
		}
		b, err := frame.MarshalBinary()
		if err != nil {
			a.reject(ctx, err)
			return
		}
		ctx.Response(wrapperspb.Bytes(b))

	default:
		ctx.Unhandled()
	}
}

func (a *FlockActor) reject(ctx *actor.ReceiveContext, err error) {
	ctx.Logger().Warnf("%s rejected %T: %v", ctx.Self().Name(), ctx.Message(), err)
	ctx.Response(wrapperspb.String(err.Error()))
}

func (a *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("flock stopped after %d ticks", a.flock.Tick())
	return nil
}

func reportToStruct(r TickReport) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"tick":         float64(r.Tick),
		"active":       r.Active,
		"neighbors":    r.Neighbors,
		"blocked":      r.Blocked,
		"avoided":      r.Avoided,
		"exhausted":    r.Exhausted,
		"meanSpeed":    r.MeanSpeed,
		"polarization": r.Polarization,
	})
}

func reportFromStruct(s *structpb.Struct) TickReport {
	f := s.GetFields()
	num := func(name string) float64 { return f[name].GetNumberValue() }
	return TickReport{
		Tick:         uint64(num("tick")),
		Active:       int(num("active")),
		Neighbors:    int(num("neighbors")),
		Blocked:      int(num("blocked")),
		Avoided:      int(num("avoided")),
		Exhausted:    int(num("exhausted")),
		MeanSpeed:    num("meanSpeed"),
		Polarization: num("polarization"),
	}
}

// ---------------------------------------------------------------------
// Client helpers
// ---------------------------------------------------------------------

func rejection(resp any) error {
	if s, ok := resp.(*wrapperspb.StringValue); ok {
		return fmt.Errorf("%w: %s", ErrRejected, s.GetValue())
	}
	return fmt.Errorf("unexpected response %T", resp)
}

// Step asks the actor for one tick of dt seconds.
func Step(ctx context.Context, pid *actor.PID, dt float64, timeout time.Duration) (TickReport, error) {
	resp, err := actor.Ask(ctx, pid, durationpb.New(time.Duration(dt*float64(time.Second))), timeout)
	if err != nil {
		return TickReport{}, err
	}
	if s, ok := resp.(*structpb.Struct); ok {
		return reportFromStruct(s), nil
	}
	return TickReport{}, rejection(resp)
}

// Resize asks the actor to change the active count and returns the new one.
func Resize(ctx context.Context, pid *actor.PID, n int, timeout time.Duration) (int, error) {
	resp, err := actor.Ask(ctx, pid, wrapperspb.Int64(int64(n)), timeout)
	if err != nil {
		return 0, err
	}
	if v, ok := resp.(*wrapperspb.Int64Value); ok {
		return int(v.GetValue()), nil
	}
	return 0, rejection(resp)
}

// Tune asks the actor to apply parameter values by name.
func Tune(ctx context.Context, pid *actor.PID, values map[string]float64, timeout time.Duration) error {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	resp, err := actor.Ask(ctx, pid, msg, timeout)
	if err != nil {
		return err
	}
	if _, ok := resp.(*emptypb.Empty); ok {
		return nil
	}
	return rejection(resp)
}

// LatestFrame asks the actor for the last published frame.
func LatestFrame(ctx context.Context, pid *actor.PID, timeout time.Duration) (Frame, error) {
	var frame Frame
	resp, err := actor.Ask(ctx, pid, &emptypb.Empty{}, timeout)
	if err != nil {
		return frame, err
	}
	b, ok := resp.(*wrapperspb.BytesValue)
	if !ok {
		return frame, rejection(resp)
	}
	err = frame.UnmarshalBinary(b.GetValue())
	return frame, err
}
