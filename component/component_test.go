package component

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	if f.events != nil {
		*f.events = append(*f.events, "start:"+f.name)
	}
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	if f.events != nil {
		*f.events = append(*f.events, "stop:"+f.name)
	}
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health { return f.health }

type describedComponent struct {
	fakeComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Type: "store", Details: "sqlite"}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeComponent{name: "store"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&fakeComponent{name: "store"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Get("store") == nil || r.Get("missing") != nil {
		t.Error("Get() returned the wrong components")
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	var events []string
	r := NewRegistry()
	for _, name := range []string{"store", "bus", "server"} {
		_ = r.Register(&fakeComponent{name: name, events: &events})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}

	want := []string{
		"start:store", "start:bus", "start:server",
		"stop:server", "stop:bus", "stop:store",
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRegistry_StartFailureStopsOnlyStarted(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "store", events: &events})
	_ = r.Register(&fakeComponent{name: "bus", events: &events, startErr: errors.New("broker unreachable")})
	_ = r.Register(&fakeComponent{name: "server", events: &events})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected StartAll() error")
	}
	events = nil
	_ = r.StopAll(context.Background())
	if want := []string{"stop:store"}; !reflect.DeepEqual(events, want) {
		t.Errorf("stop events = %v, want %v", events, want)
	}
}

func TestRegistry_StopJoinsErrors(t *testing.T) {
	r := NewRegistry()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	_ = r.Register(&fakeComponent{name: "a", stopErr: errA})
	_ = r.Register(&fakeComponent{name: "b", stopErr: errB})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("StopAll() error = %v, want both stop errors", err)
	}
}

func TestRegistry_Health(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "store", health: Health{Name: "store", Status: StatusHealthy}})
	_ = r.Register(&fakeComponent{name: "bus", health: Health{Name: "bus", Status: StatusDegraded}})

	if got := r.HealthAll(context.Background()); len(got) != 2 || got[1].Status != StatusDegraded {
		t.Errorf("HealthAll() = %+v", got)
	}
	if !r.Healthy(context.Background()) {
		t.Error("degraded component must not make the registry unhealthy")
	}

	_ = r.Register(&fakeComponent{name: "server", health: Health{Name: "server", Status: StatusUnhealthy}})
	if r.Healthy(context.Background()) {
		t.Error("Healthy() = true with an unhealthy component")
	}
}

func TestRegistry_Descriptions(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "plain"})
	_ = r.Register(&describedComponent{fakeComponent{name: "runs"}})

	got := r.Descriptions()
	if len(got) != 1 || got[0].Name != "runs" || got[0].Type != "store" {
		t.Errorf("Descriptions() = %+v", got)
	}
}

func TestRegistry_StartAllIsIncremental(t *testing.T) {
	var events []string
	r := NewRegistry()
	_ = r.Register(&fakeComponent{name: "store", events: &events})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	_ = r.Register(&fakeComponent{name: "server", events: &events})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("second StartAll() error = %v", err)
	}
	if want := []string{"start:store", "start:server"}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}
