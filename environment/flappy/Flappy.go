// Package flappy implements a side-scrolling control environment in
// which a bird must fly through gaps between oncoming pipes
package flappy

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	env "flappyrl/environment"
	ts "flappyrl/timestep"
	"flappyrl/utils/floatutils"
)

const (
	// Discrete actions
	NoFlap int = 0
	Flap   int = 1

	MinDiscreteAction int = NoFlap
	MaxDiscreteAction int = Flap

	// BirdX is the bird's fixed horizontal position. The world scrolls
	// past the bird rather than the bird moving through the world.
	BirdX float64 = 0.20

	// Horizontal positions governing the pipe lifecycle
	firstPipeX float64 = 1.0
	spawnAhead float64 = 3.0
)

// Config implements the physical configuration of a Flappy environment
type Config struct {
	WorldHeight float64
	PipeWidth   float64
	PipeGap     float64 // Vertical opening between a pipe pair
	PipeSpacing float64 // Distance from one pipe center to the next
	PipeSpeed   float64 // Scroll speed in world units per second
	Dt          float64 // Seconds between state updates

	// Physics
	Gravity     float64 // Downward acceleration (negative)
	FlapImpulse float64 // Instantaneous velocity gain per flap
	TerminalVy  float64 // Clamp on downward speed (negative)
	MaxVy       float64 // Clamp on upward speed

	// Rewards
	RewardPass  float64 // Crossing a pipe centerline
	RewardDeath float64 // Terminal collision
	RewardStep  float64 // Per-step shaping, 0 by default

	// Gap centers are sampled uniformly from [GapYMin, GapYMax]
	GapYMin float64
	GapYMax float64

	// MaxEpisodeSteps cuts episodes off at a step limit when positive.
	// Zero means episodes end only on collision.
	MaxEpisodeSteps int
}

// NewDefaultConfig returns the canonical Flappy configuration
func NewDefaultConfig() Config {
	return Config{
		WorldHeight: 1.0,
		PipeWidth:   0.1,
		PipeGap:     0.25,
		PipeSpacing: 0.60,
		PipeSpeed:   0.50,
		Dt:          1.0 / 60.0,
		Gravity:     -2.0,
		FlapImpulse: 0.60,
		TerminalVy:  -3.0,
		MaxVy:       2.5,
		RewardPass:  1.0,
		RewardDeath: -1.0,
		RewardStep:  0.0,
		GapYMin:     0.30,
		GapYMax:     0.70,
	}
}

// Validate checks a Config to ensure it describes a legal world
func (c Config) Validate() error {
	if c.WorldHeight <= 0 || c.PipeWidth <= 0 || c.PipeGap <= 0 ||
		c.PipeSpacing <= 0 || c.PipeSpeed <= 0 || c.Dt <= 0 {
		return fmt.Errorf("validate: world dimensions and rates must be " +
			"positive")
	}
	if c.GapYMin > c.GapYMax {
		return fmt.Errorf("validate: cannot have gap sampling bounds "+
			"\n\tmin(%v) > max(%v)", c.GapYMin, c.GapYMax)
	}
	if c.TerminalVy > c.MaxVy {
		return fmt.Errorf("validate: cannot have velocity clamp "+
			"\n\tmin(%v) > max(%v)", c.TerminalVy, c.MaxVy)
	}
	return nil
}

// pipe is a pipe pair at horizontal position x with a vertical opening
// centered on gapY
type pipe struct {
	x    float64
	gapY float64
}

// Flappy implements the flappy bird control environment. The bird
// falls under gravity and gains upward velocity from flaps while pipes
// scroll toward it at constant speed.
//
// The state features are continuous and consist of the bird's height
// and vertical velocity, the horizontal distance to the current pipe's
// center, and the vertical offset from the bird to that pipe's gap
// center.
//
// Actions are discrete:
//
//	Action	Meaning
//	  0		Do nothing
//	  1		Flap
//
// Crossing a pipe's centerline earns RewardPass once per pipe.
// Colliding with the ground, the ceiling, or a pipe ends the episode
// with RewardDeath.
type Flappy struct {
	config   Config
	discount float64

	// Persistent stream for gap sampling, advanced once per spawned
	// pipe and never reseeded between episodes
	gapDist distuv.Uniform

	starter env.Starter // Optional; nil means the canonical fixed start
	ender   env.Ender

	y, vy       float64
	pipes       []pipe
	currentPipe int
	passedFlag  bool
	done        bool

	lastStep ts.TimeStep
}

// New constructs a new Flappy environment and returns it along with
// the first timestep of the first episode. A nil starter gives the
// canonical start: the bird at rest at mid-height.
func New(config Config, discount float64, seed uint64,
	starter env.Starter) (*Flappy, ts.TimeStep, error) {
	if err := config.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: invalid "+
			"configuration: %v", err)
	}

	f := &Flappy{
		config:   config,
		discount: discount,
		gapDist: distuv.Uniform{
			Min: config.GapYMin,
			Max: config.GapYMax,
			Src: rand.NewSource(seed),
		},
		starter: starter,
	}
	if config.MaxEpisodeSteps > 0 {
		f.ender = env.NewStepLimit(config.MaxEpisodeSteps)
	}

	firstStep := f.Reset()
	return f, firstStep, nil
}

// Reset resets the environment and returns the starting timestep of a
// new episode. The gap sampling stream is not reseeded, so successive
// episodes see different pipe layouts.
func (f *Flappy) Reset() ts.TimeStep {
	f.y = 0.5 * f.config.WorldHeight
	f.vy = 0.0
	if f.starter != nil {
		start := f.starter.Start()
		f.y = start.AtVec(0)
		f.vy = start.AtVec(1)
	}

	f.pipes = f.pipes[:0]
	f.currentPipe = 0
	f.passedFlag = false
	f.done = false

	f.addPipe(firstPipeX)
	for f.pipes[len(f.pipes)-1].x < spawnAhead {
		f.addPipe(f.pipes[len(f.pipes)-1].x + f.config.PipeSpacing)
	}

	startStep := ts.New(ts.First, 0, f.discount, f.observation(), 0)
	f.lastStep = startStep

	return startStep
}

// Step takes one environmental step given an action and returns the
// next timestep along with a bool indicating whether the episode ended
// on this step
func (f *Flappy) Step(action int) (ts.TimeStep, bool) {
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		panic(fmt.Sprintf("step: illegal action %v ∉ {0, 1}", action))
	}
	if f.done {
		return f.lastStep, true
	}

	reward := f.config.RewardStep

	// Action and physics
	if action == Flap {
		f.vy += f.config.FlapImpulse
	}
	f.vy += f.config.Gravity * f.config.Dt
	f.vy = floatutils.Clip(f.vy, f.config.TerminalVy, f.config.MaxVy)
	f.y += f.vy * f.config.Dt

	f.scrollPipes()

	if f.checkCollision() {
		f.done = true
		reward = f.config.RewardDeath
	}

	if !f.done && f.passedPipe() {
		reward += f.config.RewardPass
		f.passedFlag = true
	}

	stepType := ts.Mid
	if f.done {
		stepType = ts.Last
	}
	nextStep := ts.New(stepType, reward, f.discount, f.observation(),
		f.lastStep.Number+1)
	if f.ender != nil && f.ender.End(&nextStep) {
		f.done = true
	}

	f.lastStep = nextStep
	return nextStep, nextStep.Last()
}

// scrollPipes moves every pipe toward the bird, retires pipes that
// scrolled off the left edge, advances the current pipe index past
// pipes the bird has cleared, and spawns new pipes ahead
func (f *Flappy) scrollPipes() {
	scroll := f.config.PipeSpeed * f.config.Dt
	for i := range f.pipes {
		f.pipes[i].x -= scroll
	}

	removed := 0
	for len(f.pipes) > 0 &&
		f.pipes[0].x+0.5*f.config.PipeWidth < 0.0 {
		f.pipes = f.pipes[1:]
		removed++
	}
	if f.currentPipe >= removed {
		f.currentPipe -= removed
	} else {
		f.currentPipe = 0
	}

	// The current pipe is the first whose trailing edge has not yet
	// passed the bird. Each time it advances, the pass reward is
	// re-armed for the new pipe.
	for f.currentPipe < len(f.pipes) &&
		f.pipes[f.currentPipe].x+0.5*f.config.PipeWidth < BirdX {
		f.passedFlag = false
		if f.currentPipe+1 < len(f.pipes) {
			f.currentPipe++
		} else {
			break
		}
	}

	furthest := 0.0
	if len(f.pipes) > 0 {
		furthest = f.pipes[len(f.pipes)-1].x
	}
	for furthest < spawnAhead {
		f.addPipe(furthest + f.config.PipeSpacing)
		furthest = f.pipes[len(f.pipes)-1].x
	}
}

func (f *Flappy) addPipe(x float64) {
	f.pipes = append(f.pipes, pipe{x: x, gapY: f.gapDist.Rand()})
}

// checkCollision returns whether the bird currently overlaps the
// ground, the ceiling, or the solid part of the current pipe. The bird
// is a point at (BirdX, y).
func (f *Flappy) checkCollision() bool {
	if f.y <= 0.0 || f.y >= f.config.WorldHeight {
		return true
	}

	if f.currentPipe < len(f.pipes) {
		p := f.pipes[f.currentPipe]
		pipeLeft := p.x - 0.5*f.config.PipeWidth
		pipeRight := p.x + 0.5*f.config.PipeWidth

		if BirdX >= pipeLeft && BirdX <= pipeRight {
			gapTop := p.gapY + 0.5*f.config.PipeGap
			gapBottom := p.gapY - 0.5*f.config.PipeGap
			if f.y <= gapBottom || f.y >= gapTop {
				return true
			}
		}
	}

	return false
}

// passedPipe returns whether the bird crossed the current pipe's
// centerline and has not yet been rewarded for it
func (f *Flappy) passedPipe() bool {
	if f.currentPipe >= len(f.pipes) || f.passedFlag {
		return false
	}
	return BirdX > f.pipes[f.currentPipe].x
}

// observation returns the current state observation
// [y, vy, dxToPipe, dyToGap]
func (f *Flappy) observation() mat.Vector {
	dxToPipe := 1.0
	dyToGap := 0.0
	if f.currentPipe < len(f.pipes) {
		p := f.pipes[f.currentPipe]
		dxToPipe = p.x - BirdX
		dyToGap = p.gapY - f.y
	}

	return mat.NewVecDense(4, []float64{f.y, f.vy, dxToPipe, dyToGap})
}

// ActionSpec returns the action specification of the environment
func (f *Flappy) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(1, []float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (f *Flappy) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(4, nil)

	lower := []float64{0.0, f.config.TerminalVy, -spawnAhead,
		-f.config.WorldHeight}
	lowerBound := mat.NewVecDense(4, lower)

	upper := []float64{f.config.WorldHeight, f.config.MaxVy, spawnAhead,
		f.config.WorldHeight}
	upperBound := mat.NewVecDense(4, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// DiscountSpec returns the discounting specification of the environment
func (f *Flappy) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{f.discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

// RewardSpec returns the reward specification of the environment
func (f *Flappy) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{f.config.RewardDeath})
	upperBound := mat.NewVecDense(1,
		[]float64{f.config.RewardPass + f.config.RewardStep})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}

func (f *Flappy) String() string {
	msg := "Flappy  |  Height: %v  |  Velocity: %v  |  Pipes: %v"
	return fmt.Sprintf(msg, f.y, f.vy, len(f.pipes))
}
