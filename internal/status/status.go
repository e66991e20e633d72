// Copyright 2025 MediaMirror Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package status is the observation layer of the sync pipeline. Every
// stage drives a Tracker state machine; a Run composes the trackers into
// one aggregate status and streams snapshots to an observer.
//
// The package never influences what data is written. A nil *Run (and the
// nil *Tracker it hands out) is fully functional and silently discards
// every call, so a synchronous embedding can ignore the protocol
// entirely.
package status

import "sync"

// State is one node of the stage state machine:
//
//	NotStarted -> Running -> {Complete | Failed | Cancelled}
//	NotStarted -> Skipped
type State int

const (
	NotStarted State = iota
	Running
	Complete
	Failed
	Cancelled
	Skipped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case Complete, Failed, Cancelled, Skipped:
		return true
	}
	return false
}

// Progress is an items-processed / items-to-process pair. Total may be
// zero when the stage size is unknown up front.
type Progress struct {
	Done  int
	Total int
}

// Snapshot is one observed stage state.
type Snapshot struct {
	Stage    string
	State    State
	Progress *Progress
	Err      error
}

// Tracker is the state machine of one stage. All methods are nil-safe
// no-ops so stages can run without an observer.
type Tracker struct {
	run      *Run
	name     string
	mu       sync.Mutex
	state    State
	progress *Progress
	err      error
}

// Start moves the stage to Running. total may be 0 for unsized stages.
func (t *Tracker) Start(total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.state = Running
	t.progress = &Progress{Total: total}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.run.emit(snap)
}

// Advance records n completed units of work. Called once per item, not
// per sub-step, to bound update frequency.
func (t *Tracker) Advance(n int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.state != Running {
		t.mu.Unlock()
		return
	}
	if t.progress == nil {
		t.progress = &Progress{}
	}
	t.progress.Done += n
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.run.emit(snap)
}

// Complete terminates the stage successfully.
func (t *Tracker) Complete() { t.finish(Complete, nil) }

// Fail terminates the stage with a reason.
func (t *Tracker) Fail(err error) { t.finish(Failed, err) }

// Cancel terminates the stage without error; committed work stays.
func (t *Tracker) Cancel() { t.finish(Cancelled, nil) }

// Skip marks a configuration-disabled stage, reachable only from
// NotStarted.
func (t *Tracker) Skip() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.state != NotStarted {
		t.mu.Unlock()
		return
	}
	t.state = Skipped
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.run.emit(snap)
}

func (t *Tracker) finish(state State, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = state
	t.err = err
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.run.emit(snap)
}

// Snapshot returns the current stage state.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	snap := Snapshot{Stage: t.name, State: t.state, Err: t.err}
	if t.progress != nil {
		p := *t.progress
		snap.Progress = &p
	}
	return snap
}

// Run composes stage trackers into one observable aggregate.
type Run struct {
	mu      sync.Mutex
	stages  []*Tracker
	byName  map[string]*Tracker
	updates chan Snapshot
}

// NewRun creates a run with one tracker per stage name, in order.
func NewRun(stageNames ...string) *Run {
	r := &Run{
		byName:  make(map[string]*Tracker, len(stageNames)),
		updates: make(chan Snapshot, 64),
	}
	for _, name := range stageNames {
		t := &Tracker{run: r, name: name}
		r.stages = append(r.stages, t)
		r.byName[name] = t
	}
	return r
}

// Stage returns the tracker for name. Nil runs and unknown names yield a
// nil tracker, which is safe to drive.
func (r *Run) Stage(name string) *Tracker {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byName[name]
}

// Updates streams stage snapshots. Slow consumers lose intermediate
// snapshots; terminal states are observable via State.
func (r *Run) Updates() <-chan Snapshot {
	if r == nil {
		return nil
	}
	return r.updates
}

// emit delivers a snapshot without ever blocking a stage.
func (r *Run) emit(snap Snapshot) {
	if r == nil {
		return
	}
	select {
	case r.updates <- snap:
	default:
	}
}

// Close ends the update stream. Call after the run has terminated.
func (r *Run) Close() {
	if r == nil {
		return
	}
	close(r.updates)
}

// State mirrors the child terminal states into one aggregate: a failed
// child fails the run with the same reason, a cancelled child cancels
// it, and the run is Complete only when every stage ended in Complete or
// Skipped.
func (r *Run) State() (State, error) {
	if r == nil {
		return NotStarted, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	allNotStarted := true
	allDone := true
	for _, t := range r.stages {
		snap := t.Snapshot()
		switch snap.State {
		case Failed:
			return Failed, snap.Err
		case Cancelled:
			return Cancelled, nil
		case NotStarted:
			allDone = false
		case Running:
			allNotStarted = false
			allDone = false
		default:
			allNotStarted = false
		}
	}
	if allNotStarted && len(r.stages) > 0 {
		return NotStarted, nil
	}
	if allDone {
		return Complete, nil
	}
	return Running, nil
}
