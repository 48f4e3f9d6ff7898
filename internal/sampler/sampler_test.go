package sampler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/mayele-labs/mems_logger/internal/imu"
	"github.com/mayele-labs/mems_logger/internal/state"
	"github.com/mayele-labs/mems_logger/internal/storage"
)

var knownSample = imu.MotionSample{
	AccX: 1.0, AccY: 2.0, AccZ: 3.0,
	GyroX: 0.1, GyroY: 0.2, GyroZ: 0.3,
}

type fakeSensor struct {
	sample    imu.MotionSample
	updates   int
	reads     int
	updateErr error
	readErr   error
}

func (f *fakeSensor) Update(context.Context) error {
	f.updates++
	return f.updateErr
}

func (f *fakeSensor) Read() (imu.MotionSample, error) {
	f.reads++
	if f.readErr != nil {
		return imu.MotionSample{}, f.readErr
	}
	return f.sample, nil
}

type lineRecorder struct {
	lines []string
	err   error
}

func (r *lineRecorder) PrintLine(text string) error {
	if r.err != nil {
		return r.err
	}
	r.lines = append(r.lines, text)
	return nil
}

type recordRecorder struct {
	paths, lines []string
	err          error
}

func (r *recordRecorder) AppendRecord(path, line string) error {
	if r.err != nil {
		return r.err
	}
	r.paths = append(r.paths, path)
	r.lines = append(r.lines, line)
	return nil
}

type publishRecorder struct {
	samples []imu.MotionSample
	times   []time.Time
}

func (p *publishRecorder) Publish(_ context.Context, s imu.MotionSample, at time.Time) error {
	p.samples = append(p.samples, s)
	p.times = append(p.times, at)
	return nil
}

type harness struct {
	clock   *clock.Mock
	sensor  *fakeSensor
	state   *state.State
	display *lineRecorder
	storage *recordRecorder
	sampler *Sampler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   clock.NewMock(),
		sensor:  &fakeSensor{sample: knownSample},
		state:   &state.State{},
		display: &lineRecorder{},
		storage: &recordRecorder{},
	}
	h.state.Set(state.StorageReady | state.MEMSReady | state.DisplayReady | state.Working)
	s, err := New(Config{
		Interval: time.Second,
		Clock:    h.clock,
		Sensor:   h.sensor,
		State:    h.state,
		Display:  h.display,
		Storage:  h.storage,
		LogPath:  "/memsdata.csv",
	})
	test.That(t, err, test.ShouldBeNil)
	h.sampler = s
	return h
}

func TestCadence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		emitted, err := h.sampler.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, emitted, test.ShouldBeFalse)
		h.clock.Add(100 * time.Millisecond)
	}
	test.That(t, h.sensor.updates, test.ShouldEqual, 5)
	test.That(t, h.sensor.reads, test.ShouldEqual, 0)

	h.clock.Add(499 * time.Millisecond)
	emitted, err := h.sampler.Tick(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeFalse)

	h.clock.Add(time.Millisecond)
	emitted, err = h.sampler.Tick(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)

	// Back-to-back calls inside the next interval emit nothing more.
	for i := 0; i < 3; i++ {
		emitted, err = h.sampler.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, emitted, test.ShouldBeFalse)
	}
	test.That(t, h.display.lines, test.ShouldHaveLength, 1)
	test.That(t, h.storage.lines, test.ShouldHaveLength, 1)
	test.That(t, h.sampler.Emitted(), test.ShouldEqual, 1)
	test.That(t, h.sensor.updates, test.ShouldEqual, 10)
}

func TestOneOutputPerElapsedInterval(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		h.clock.Add(time.Second)
		emitted, err := h.sampler.Tick(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, emitted, test.ShouldBeTrue)
	}
	// A long stall still yields a single sample.
	h.clock.Add(10 * time.Second)
	emitted, err := h.sampler.Tick(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)
	emitted, err = h.sampler.Tick(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeFalse)

	test.That(t, h.display.lines, test.ShouldHaveLength, 5)
	test.That(t, h.storage.lines, test.ShouldHaveLength, 5)
}

func TestEndToEnd(t *testing.T) {
	root := t.TempDir()
	store := storage.New(root, zap.NewNop().Sugar())
	test.That(t, store.CheckStorage(), test.ShouldBeNil)
	test.That(t, store.WriteHeader("/memsdata.csv", imu.Header+"\n"), test.ShouldBeNil)

	mock := clock.NewMock()
	st := &state.State{}
	st.Set(state.StorageReady | state.MEMSReady | state.DisplayReady)
	sensor := &fakeSensor{sample: knownSample}
	display := &lineRecorder{}
	s, err := New(Config{
		Interval: time.Second,
		Clock:    mock,
		Sensor:   sensor,
		State:    st,
		Display:  display,
		Storage:  store,
		LogPath:  "/memsdata.csv",
	})
	test.That(t, err, test.ShouldBeNil)

	emitted, err := s.Tick(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeFalse)
	_, ok := s.Current()
	test.That(t, ok, test.ShouldBeFalse)

	mock.Add(1000 * time.Millisecond)
	emitted, err = s.Tick(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)

	data, err := os.ReadFile(filepath.Join(root, "memsdata.csv"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldEqual,
		"accx;accy;accz;gyrox;gyroy;gyroz\n1.0;2.0;3.0;0.1;0.2;0.3\n")
	test.That(t, display.lines, test.ShouldResemble,
		[]string{"aX:1.0 aY:2.0 aZ:3.0 gX:0.1 gY:0.2 gZ:0.3"})

	current, ok := s.Current()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, current, test.ShouldResemble, knownSample)
}

func TestUpdateFailureSkipsSample(t *testing.T) {
	h := newHarness(t)
	h.sensor.updateErr = errors.New("bus busy")
	h.clock.Add(time.Second)

	emitted, err := h.sampler.Tick(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bus busy")
	test.That(t, emitted, test.ShouldBeFalse)
	test.That(t, h.sensor.reads, test.ShouldEqual, 0)

	// The cadence clock was not reset, so recovery emits immediately.
	h.sensor.updateErr = nil
	emitted, err = h.sampler.Tick(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)
}

func TestReadFailureSkipsSample(t *testing.T) {
	h := newHarness(t)
	h.sensor.readErr = errors.New("short read")
	h.clock.Add(time.Second)

	emitted, err := h.sampler.Tick(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, emitted, test.ShouldBeFalse)
	test.That(t, h.display.lines, test.ShouldBeEmpty)
	test.That(t, h.storage.lines, test.ShouldBeEmpty)
	_, ok := h.sampler.Current()
	test.That(t, ok, test.ShouldBeFalse)

	h.sensor.readErr = nil
	emitted, err = h.sampler.Tick(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)
	test.That(t, h.storage.lines, test.ShouldResemble, []string{"1.0;2.0;3.0;0.1;0.2;0.3\n"})
}

func TestSinkFailuresAreCombined(t *testing.T) {
	h := newHarness(t)
	h.display.err = errors.New("display gone")
	h.storage.err = errors.New("card pulled")
	h.clock.Add(time.Second)

	emitted, err := h.sampler.Tick(context.Background())
	test.That(t, emitted, test.ShouldBeTrue)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "display gone")
	test.That(t, err.Error(), test.ShouldContainSubstring, "card pulled")

	// The sample still counts, so the next one waits a full interval.
	emitted, err = h.sampler.Tick(context.Background())
	test.That(t, emitted, test.ShouldBeFalse)
	test.That(t, err, test.ShouldBeNil)
}

func TestStateGating(t *testing.T) {
	h := newHarness(t)
	h.state.Clear(state.MEMSReady)
	h.clock.Add(time.Second)

	emitted, err := h.sampler.Tick(context.Background())
	test.That(t, err, test.ShouldBeError, ErrSensorNotReady)
	test.That(t, emitted, test.ShouldBeFalse)
	test.That(t, h.sensor.updates, test.ShouldEqual, 0)

	h.state.Set(state.MEMSReady)
	h.state.Clear(state.StorageReady | state.DisplayReady)
	emitted, err = h.sampler.Tick(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)
	test.That(t, h.display.lines, test.ShouldBeEmpty)
	test.That(t, h.storage.lines, test.ShouldBeEmpty)
}

func TestPublisherReceivesSample(t *testing.T) {
	mock := clock.NewMock()
	st := &state.State{}
	st.Set(state.MEMSReady)
	pub := &publishRecorder{}
	s, err := New(Config{
		Interval:  500 * time.Millisecond,
		Clock:     mock,
		Sensor:    &fakeSensor{sample: knownSample},
		State:     st,
		Publisher: pub,
	})
	test.That(t, err, test.ShouldBeNil)

	mock.Add(500 * time.Millisecond)
	emitted, err := s.Tick(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, emitted, test.ShouldBeTrue)
	test.That(t, pub.samples, test.ShouldResemble, []imu.MotionSample{knownSample})
	test.That(t, pub.times[0], test.ShouldEqual, mock.Now())
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{Interval: 0, Sensor: &fakeSensor{}, State: &state.State{}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(Config{Interval: time.Second, State: &state.State{}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(Config{Interval: time.Second, Sensor: &fakeSensor{}})
	test.That(t, err, test.ShouldNotBeNil)
}
