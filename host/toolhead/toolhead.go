// Package toolhead implements the host-resident motion planner: a state
// machine over print_time that accepts linear move requests, runs them
// through gopper/motion's look-ahead planner, and dispatches the resulting
// trapezoids to a trapq plus an MCU clock, staying synchronized against the
// MCU's estimated print time.
//
// Grounded on _examples/original_source/klippy/toolhead.py's ToolHead class.
package toolhead

import (
	"fmt"
	"math"

	"gopper/motion"
)

// Print-time pacing constants, matching the source toolhead's tuning
// values. buffer_time_* and move_flush_time are configurable (see Config)
// and kin_flush_delay is adjusted by NoteStepGenerationScanTime; these are
// not.
const (
	minKinTime      = 0.100
	moveBatchTime   = 0.500
	sdsCheckTime    = 0.001
	dripSegmentTime = 0.050
	dripTime        = 0.100
)

// reactorNow and reactorNever mirror host/reactor.NOW/NEVER. ToolHead only
// depends on the Reactor interface, so it keeps its own copies rather than
// importing host/reactor (which would create an avoidable dependency for a
// package that only needs two float64 sentinels).
const (
	reactorNow   = 0.0
	reactorNever = 1e18
)

// queuingState is special_queuing_state as a Go enum. stateMain is the
// "" (non-special) state from the source; the other three are the special
// states that gate print_time resync and flush-timer scheduling.
type queuingState int

const (
	stateMain queuingState = iota
	stateFlushed
	statePriming
	stateDrip
)

// dripResult replaces the source's DripModeEndSignal exception per the
// sentinel-exception redesign: updateDripMoveTime returns a value instead
// of unwinding the stack, and DripMove branches on it.
type dripResult int

const (
	dripContinue dripResult = iota
	dripCancelled
)

// Status is the observability snapshot returned by GetStatus, merged with
// the kinematics' own status map.
type Status struct {
	PrintTime            float64
	EstimatedPrintTime   float64
	Stalls               int
	Extruder             string
	Position             motion.Vector4
	MaxVelocity          float64
	MaxAccel             float64
	MaxAccelToDecel      float64
	SquareCornerVelocity float64
	Kinematics           map[string]interface{}
}

// ToolHead is the planner's state machine: it owns the move queue, the
// commanded position, and the print_time clock, and drives the trapq and
// extruder through a move's lifecycle.
type ToolHead struct {
	cfg Config

	reactor Reactor
	mcu     MCUClock
	allMCUs []MCUClock
	kin     Kinematics
	extruder Extruder
	trapq    TrapQueue

	commandedPos motion.Vector4

	printTime          float64
	state              queuingState
	needCheckStall     float64
	flushTimer         interface{}
	idleFlushPrintTime float64
	printStall         int
	canPause           bool
	shutdown           bool

	requestedAccelToDecel float64
	effectiveAccelToDecel float64

	kinFlushDelay    float64
	kinFlushTimes    []float64
	lastKinFlushTime float64
	lastKinMoveTime  float64

	moveQueue *motion.MoveQueue

	dripCompletion Completion
	dripCancelled  bool

	// lastFlushErr carries an error raised by a flush-time handler
	// (currently only the extruder's Move) out of processMoves, which
	// motion.MoveQueue.Flush calls as a func(ready []*Move) with no error
	// return. Move clears and surfaces it after AddMove returns.
	lastFlushErr error
}

// NewToolHead wires a ToolHead to its external collaborators. cfg must
// already have passed Validate.
func NewToolHead(cfg Config, r Reactor, mcu MCUClock, allMCUs []MCUClock, kin Kinematics, extruder Extruder, trapq TrapQueue) *ToolHead {
	th := &ToolHead{
		cfg:                   cfg,
		reactor:               r,
		mcu:                   mcu,
		allMCUs:                allMCUs,
		kin:                   kin,
		extruder:              extruder,
		trapq:                 trapq,
		state:                 stateFlushed,
		needCheckStall:        -1,
		canPause:              !mcu.IsFileOutput(),
		requestedAccelToDecel: cfg.MaxAccelToDecel,
		kinFlushDelay:         sdsCheckTime,
		moveQueue:             motion.NewMoveQueue(),
	}
	th.recalcAccelToDecel()
	th.flushTimer = r.RegisterTimer(th.flushHandler)
	th.moveQueue.SetFlushTime(cfg.BufferTimeHigh)
	return th
}

func (th *ToolHead) recalcAccelToDecel() {
	th.effectiveAccelToDecel = math.Min(th.requestedAccelToDecel, th.cfg.MaxAccel)
}

func (th *ToolHead) currentLimits() motion.Limits {
	return motion.Limits{
		MaxVelocity:       th.cfg.MaxVelocity,
		MaxAccel:          th.cfg.MaxAccel,
		MaxAccelToDecel:   th.effectiveAccelToDecel,
		JunctionDeviation: th.cfg.junctionDeviation(),
	}
}

// Print-time tracking.

func (th *ToolHead) updateMoveTime(nextPrintTime float64) {
	lkft := th.lastKinFlushTime
	for {
		th.printTime = math.Min(th.printTime+moveBatchTime, nextPrintTime)
		sgFlushTime := math.Max(lkft, th.printTime-th.kinFlushDelay)
		freeTime := math.Max(lkft, sgFlushTime-th.kinFlushDelay)

		th.trapq.FinalizeMoves(freeTime)
		th.extruder.UpdateMoveTime(freeTime)

		mcuFlushTime := math.Max(lkft, sgFlushTime-th.cfg.MoveFlushTime)
		for _, m := range th.allMCUs {
			m.FlushMoves(mcuFlushTime)
		}
		if th.printTime >= nextPrintTime {
			break
		}
	}
}

func (th *ToolHead) calcPrintTime() {
	curtime := th.reactor.Monotonic()
	est := th.mcu.EstimatedPrintTime(curtime)

	kinTime := math.Max(est+minKinTime, th.lastKinFlushTime)
	kinTime += th.kinFlushDelay
	minPrintTime := math.Max(est+th.cfg.BufferTimeStart, kinTime)

	if minPrintTime > th.printTime {
		th.printTime = minPrintTime
	}
}

func (th *ToolHead) processMoves(moves []*motion.Move) {
	if th.state != stateMain {
		if th.state != stateDrip {
			th.state = stateMain
			th.needCheckStall = -1
			th.reactor.UpdateTimer(th.flushTimer, reactorNow)
		}
		th.calcPrintTime()
	}

	nextMoveTime := th.printTime
	for _, mv := range moves {
		if mv.IsKinematicMove {
			th.trapq.Append(nextMoveTime, mv.AccelT, mv.CruiseT, mv.DecelT,
				[3]float64{mv.StartPos[0], mv.StartPos[1], mv.StartPos[2]},
				[3]float64{mv.AxesR[0], mv.AxesR[1], mv.AxesR[2]},
				mv.StartV, mv.CruiseV, mv.Accel)
		}
		if mv.AxesD[3] != 0 {
			if err := th.extruder.Move(nextMoveTime, mv); err != nil && th.lastFlushErr == nil {
				th.lastFlushErr = &FlushHandlerFailure{Handler: "extruder", Err: err}
			}
		}
		nextMoveTime += mv.AccelT + mv.CruiseT + mv.DecelT
		for _, cb := range mv.TimingCallbacks {
			cb(nextMoveTime)
		}
	}

	if th.state != stateMain {
		if th.updateDripMoveTime(nextMoveTime) == dripCancelled {
			th.dripCancelled = true
			return
		}
	}

	th.updateMoveTime(nextMoveTime)
	th.lastKinMoveTime = nextMoveTime
}

// flushLookahead is _flush_lookahead: route through the full
// flush-step-generation sequence while in a special state, otherwise just
// run a non-lazy queue flush.
func (th *ToolHead) flushLookahead() {
	if th.state != stateMain {
		th.FlushStepGeneration()
		return
	}
	th.moveQueue.Flush(false, th.processMoves)
}

// FlushStepGeneration transitions from Flushed/Priming/main state to
// Flushed, forcing every pending move through processMoves and re-syncing
// print_time against the trapq/extruder/MCU flush horizons.
func (th *ToolHead) FlushStepGeneration() {
	th.moveQueue.Flush(false, th.processMoves)

	th.state = stateFlushed
	th.needCheckStall = -1
	th.reactor.UpdateTimer(th.flushTimer, reactorNever)
	th.moveQueue.SetFlushTime(th.cfg.BufferTimeHigh)
	th.idleFlushPrintTime = 0

	flushTime := th.lastKinMoveTime + th.kinFlushDelay
	flushTime = math.Max(flushTime, th.printTime-th.kinFlushDelay)
	th.lastKinFlushTime = math.Max(th.lastKinFlushTime, flushTime)

	th.updateMoveTime(math.Max(th.printTime, th.lastKinFlushTime))
}

func (th *ToolHead) checkStall() {
	eventtime := th.reactor.Monotonic()
	if th.state != stateMain {
		if th.idleFlushPrintTime > 0 {
			est := th.mcu.EstimatedPrintTime(eventtime)
			if est < th.idleFlushPrintTime {
				th.printStall++
			}
			th.idleFlushPrintTime = 0
		}
		th.state = statePriming
		th.needCheckStall = -1
		th.reactor.UpdateTimer(th.flushTimer, eventtime+0.100)
	}

	var est float64
	for {
		est = th.mcu.EstimatedPrintTime(eventtime)
		bufferTime := th.printTime - est
		stallTime := bufferTime - th.cfg.BufferTimeHigh
		if stallTime <= 0 {
			break
		}
		if !th.canPause {
			th.needCheckStall = reactorNever
			return
		}
		eventtime = th.reactor.Pause(eventtime + math.Min(1.0, stallTime))
	}

	if th.state == stateMain {
		th.needCheckStall = est + th.cfg.BufferTimeHigh + 0.100
	}
}

func (th *ToolHead) flushHandler(eventtime float64) float64 {
	printTime := th.printTime
	bufferTime := printTime - th.mcu.EstimatedPrintTime(eventtime)
	if bufferTime > th.cfg.BufferTimeLow {
		return eventtime + bufferTime - th.cfg.BufferTimeLow
	}
	th.FlushStepGeneration()
	if printTime != th.printTime {
		th.idleFlushPrintTime = th.printTime
	}
	return reactorNever
}

// Movement commands.

// GetPosition returns the last commanded (not necessarily yet executed)
// position.
func (th *ToolHead) GetPosition() motion.Vector4 {
	return th.commandedPos
}

// SetPosition re-anchors the toolhead's coordinate frame without issuing a
// move, used after homing or a G92-style reset.
func (th *ToolHead) SetPosition(newpos motion.Vector4, homingAxes []int) error {
	if th.shutdown {
		return ErrShutdown
	}
	th.FlushStepGeneration()
	th.trapq.SetPosition(th.printTime, newpos[0], newpos[1], newpos[2])
	th.commandedPos = newpos
	return th.kin.SetPosition(newpos, homingAxes)
}

// Move plans a straight-line move from the current commanded position to
// newpos at speed, validating it with the kinematics and extruder before
// it ever touches the queue (Move stays atomic: a rejected move never
// mutates queue state).
func (th *ToolHead) Move(newpos motion.Vector4, speed float64) error {
	if th.shutdown {
		return ErrShutdown
	}

	mv := motion.NewMove(th.currentLimits(), th.commandedPos, newpos, speed)
	if mv.MoveD == 0 {
		return nil
	}
	if mv.IsKinematicMove {
		if err := th.kin.CheckMove(mv); err != nil {
			return err
		}
	}
	if mv.AxesD[3] != 0 {
		if err := th.extruder.CheckMove(mv); err != nil {
			return err
		}
	}

	th.commandedPos = mv.EndPos
	th.moveQueue.AddMove(mv, th.extruder.CalcJunction, th.processMoves)

	if err := th.lastFlushErr; err != nil {
		th.lastFlushErr = nil
		return err
	}

	if th.printTime > th.needCheckStall {
		th.checkStall()
	}
	return nil
}

// ManualMove interprets nil entries of coord as "keep the current commanded
// value for that axis", matching gcode's relative/absolute coordinate
// resolution one level up.
func (th *ToolHead) ManualMove(coord [4]*float64, speed float64) error {
	cur := th.commandedPos
	for i := 0; i < 4; i++ {
		if coord[i] != nil {
			cur[i] = *coord[i]
		}
	}
	return th.Move(cur, speed)
}

// Dwell pauses step generation for delay seconds (clamped to >= 0) beyond
// the last planned move.
func (th *ToolHead) Dwell(delay float64) {
	if delay < 0 {
		delay = 0
	}
	nextPrintTime := th.GetLastMoveTime() + delay
	th.updateMoveTime(nextPrintTime)
	th.checkStall()
}

// GetLastMoveTime flushes the lookahead queue and resyncs print_time,
// returning a time safe to schedule a new move or dwell after.
func (th *ToolHead) GetLastMoveTime() float64 {
	th.flushLookahead()
	if th.state != stateMain {
		th.calcPrintTime()
	}
	return th.printTime
}

// WaitMoves blocks (if pausing is permitted) until every planned move has
// been handed to the MCU.
func (th *ToolHead) WaitMoves() {
	th.flushLookahead()
	eventtime := th.reactor.Monotonic()
	for th.state == stateMain || th.printTime >= th.mcu.EstimatedPrintTime(eventtime) {
		if !th.canPause {
			break
		}
		eventtime = th.reactor.Pause(eventtime + 0.100)
	}
}

// Homing "drip move" handling.

// updateDripMoveTime advances print_time in DRIP_SEGMENT_TIME increments,
// pausing between batches so step generation never runs more than
// flush_delay ahead of the MCU's estimated clock. Returns dripCancelled if
// the caller's completion fires before nextPrintTime is reached.
func (th *ToolHead) updateDripMoveTime(nextPrintTime float64) dripResult {
	flushDelay := dripTime + th.cfg.MoveFlushTime + th.kinFlushDelay
	for th.printTime < nextPrintTime {
		if th.dripCompletion.Test() {
			return dripCancelled
		}
		curtime := th.reactor.Monotonic()
		est := th.mcu.EstimatedPrintTime(curtime)
		wait := th.printTime - est - flushDelay
		if wait > 0 && th.canPause {
			th.dripCompletion.Wait(curtime + wait)
			continue
		}
		th.updateMoveTime(math.Min(th.printTime+dripSegmentTime, nextPrintTime))
	}
	return dripContinue
}

// DripMove runs one abortable move used by homing: motion stops as soon as
// completion fires, even mid-segment. completion is typically an
// endstop-triggered reactor.Completion.
func (th *ToolHead) DripMove(newpos motion.Vector4, speed float64, completion Completion) error {
	if th.shutdown {
		return ErrShutdown
	}

	th.Dwell(th.kinFlushDelay)

	th.moveQueue.Flush(false, th.processMoves)
	th.state = stateDrip
	th.needCheckStall = reactorNever
	th.reactor.UpdateTimer(th.flushTimer, reactorNever)
	th.moveQueue.SetFlushTime(th.cfg.BufferTimeHigh)
	th.idleFlushPrintTime = 0
	th.dripCompletion = completion
	th.dripCancelled = false

	if err := th.Move(newpos, speed); err != nil {
		th.FlushStepGeneration()
		return err
	}

	th.moveQueue.Flush(false, th.processMoves)
	if th.dripCancelled {
		th.moveQueue.Reset()
		th.trapq.FinalizeMoves(math.Inf(1))
		th.extruder.UpdateMoveTime(math.Inf(1))
	}

	th.FlushStepGeneration()
	return nil
}

// Misc.

// GetKinematics returns the kinematics solver, satisfying ToolheadLike.
func (th *ToolHead) GetKinematics() Kinematics { return th.kin }

// GetSteppers returns the kinematics' stepper rails, satisfying
// ToolheadLike.
func (th *ToolHead) GetSteppers() []StepperRail { return th.kin.GetSteppers() }

// CalcPosition maps stepper positions back to toolhead coordinates,
// satisfying ToolheadLike.
func (th *ToolHead) CalcPosition(stepperPositions []float64) ([3]float64, error) {
	return th.kin.CalcPosition(stepperPositions)
}

// GetTrapq returns the toolhead's own trapq, e.g. for a virtual-toolhead
// adapter that needs to distinguish it from the extruder's.
func (th *ToolHead) GetTrapq() TrapQueue { return th.trapq }

// GetMaxVelocity reports the current velocity and acceleration caps.
func (th *ToolHead) GetMaxVelocity() (float64, float64) {
	return th.cfg.MaxVelocity, th.cfg.MaxAccel
}

// GetStatus returns an observability snapshot merged with the kinematics'
// own status.
func (th *ToolHead) GetStatus(eventtime float64) Status {
	est := th.mcu.EstimatedPrintTime(eventtime)
	return Status{
		PrintTime:            th.printTime,
		EstimatedPrintTime:   est,
		Stalls:               th.printStall,
		Extruder:             th.extruder.GetName(),
		Position:             th.commandedPos,
		MaxVelocity:          th.cfg.MaxVelocity,
		MaxAccel:             th.cfg.MaxAccel,
		MaxAccelToDecel:      th.requestedAccelToDecel,
		SquareCornerVelocity: th.cfg.SquareCornerVelocity,
		Kinematics:           th.kin.GetStatus(eventtime),
	}
}

// HandleShutdown reacts to a printer shutdown event: pausing stops being
// possible and any queued-but-unflushed moves are discarded.
func (th *ToolHead) HandleShutdown() {
	th.shutdown = true
	th.canPause = false
	th.moveQueue.Reset()
}

// NoteStepGenerationScanTime widens (or narrows) kin_flush_delay to cover a
// step generator's scan window, replacing oldDelay's contribution with
// delay's if both are given.
func (th *ToolHead) NoteStepGenerationScanTime(delay, oldDelay float64) {
	th.FlushStepGeneration()
	if oldDelay != 0 {
		for i, d := range th.kinFlushTimes {
			if d == oldDelay {
				th.kinFlushTimes = append(th.kinFlushTimes[:i], th.kinFlushTimes[i+1:]...)
				break
			}
		}
	}
	if delay != 0 {
		th.kinFlushTimes = append(th.kinFlushTimes, delay)
	}
	newDelay := sdsCheckTime
	for _, d := range th.kinFlushTimes {
		if d > newDelay {
			newDelay = d
		}
	}
	th.kinFlushDelay = newDelay
}

// RegisterLookaheadCallback arranges for cb to run once the tail of the
// current queue (or, if the queue is empty, the current print_time) has
// been scheduled.
func (th *ToolHead) RegisterLookaheadCallback(cb func(endTime float64)) {
	last := th.moveQueue.GetLast()
	if last == nil {
		cb(th.GetLastMoveTime())
		return
	}
	last.TimingCallbacks = append(last.TimingCallbacks, cb)
}

// NoteKinematicActivity records that kinematic motion is known to extend at
// least to kinTime, used by step generators outside the normal move path
// (e.g. manual stepper moves).
func (th *ToolHead) NoteKinematicActivity(kinTime float64) {
	if kinTime > th.lastKinMoveTime {
		th.lastKinMoveTime = kinTime
	}
}

// Command handlers (G4, M400, M204, SET_VELOCITY_LIMIT).

// CmdDwell implements G4 Pms: pause step generation for delaySeconds.
func (th *ToolHead) CmdDwell(delaySeconds float64) {
	th.Dwell(delaySeconds)
}

// CmdWaitMoves implements M400: wait for every queued move to finish.
func (th *ToolHead) CmdWaitMoves() {
	th.WaitMoves()
}

// CmdSetAccel implements M204: set max_accel from S, or min(P, T) when S is
// absent. ok reports whether a usable value was supplied.
func (th *ToolHead) CmdSetAccel(s, p, t *float64) (ok bool) {
	var accel float64
	switch {
	case s != nil:
		accel = *s
	case p != nil && t != nil:
		accel = math.Min(*p, *t)
	default:
		return false
	}
	th.cfg.MaxAccel = accel
	th.recalcAccelToDecel()
	return true
}

// CmdSetVelocityLimit implements SET_VELOCITY_LIMIT. Any nil parameter
// leaves that option unchanged. Returns the resulting settings as a
// printable status line.
func (th *ToolHead) CmdSetVelocityLimit(velocity, accel, squareCornerVelocity, accelToDecel *float64) string {
	if velocity != nil {
		th.cfg.MaxVelocity = *velocity
	}
	if accel != nil {
		th.cfg.MaxAccel = *accel
	}
	if squareCornerVelocity != nil {
		th.cfg.SquareCornerVelocity = *squareCornerVelocity
	}
	if accelToDecel != nil {
		th.requestedAccelToDecel = *accelToDecel
	}
	th.recalcAccelToDecel()

	return fmt.Sprintf("max_velocity: %.6f\nmax_accel: %.6f\nmax_accel_to_decel: %.6f\nsquare_corner_velocity: %.6f",
		th.cfg.MaxVelocity, th.cfg.MaxAccel, th.requestedAccelToDecel, th.cfg.SquareCornerVelocity)
}
