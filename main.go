package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"flappyrl/agent/dqn"
	"flappyrl/environment/flappy"
	"flappyrl/experiment"
	"flappyrl/experiment/tracker"
	"flappyrl/utils/matutils"
)

func main() {
	var steps = flag.Uint("steps", 100_000, "total environment steps to train")
	var seed = flag.Uint64("seed", 12345, "seed for networks, replay, and "+
		"exploration")
	var data = flag.String("data", "./returns.bin", "file for episodic "+
		"return data")
	var db = flag.String("db", "", "optional SQLite database for run results")
	var play = flag.Bool("play", false, "after training, run one greedy "+
		"episode and dump frames")
	var frames = flag.String("frames", "./frames", "directory for -play "+
		"frames")
	flag.Parse()

	// Create the environment
	envConfig := flappy.NewDefaultConfig()
	env, _, err := flappy.New(envConfig, 0.99, *seed, nil)
	if err != nil {
		log.Fatalf("could not create environment: %v", err)
	}

	// Create the learning algorithm
	agentConfig := dqn.NewDefaultConfig()
	agentConfig.Seed = *seed
	agent, err := dqn.New(agentConfig)
	if err != nil {
		log.Fatalf("could not create agent: %v", err)
	}

	// Experiment
	trackers := []tracker.Tracker{
		tracker.NewReturn(*data),
		tracker.NewEpisodeLength(*data + ".lengths"),
		tracker.NewProgress(50, int(*steps)),
	}
	if *db != "" {
		label := fmt.Sprintf("seed=%v lr=%v", *seed, agentConfig.LearningRate)
		trackers = append(trackers, tracker.NewSQLite(*db, label))
	}

	e := experiment.NewOnline(env, agent, *steps, trackers...)
	if err := e.Run(); err != nil {
		log.Fatalf("experiment failed: %v", err)
	}
	e.Save()

	fmt.Printf("trained for %v steps (%v gradient updates), final ε = %v\n",
		agent.TotalSteps(), agent.TrainingSteps(), agent.Epsilon())

	returns := tracker.LoadData(*data)
	last := 10
	if len(returns) < last {
		last = len(returns)
	}
	fmt.Println("last episodic returns:", returns[len(returns)-last:])

	if *play {
		if err := playEpisode(env, agent, *frames); err != nil {
			log.Fatalf("could not play episode: %v", err)
		}
	}
}

// playEpisode runs a single greedy episode with the trained agent,
// saving one PNG frame per step
func playEpisode(env *flappy.Flappy, agent *dqn.DQN, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	renderer := flappy.NewRenderer(400)

	step := env.Reset()
	for frame := 0; !step.Last() && frame < 2000; frame++ {
		qValues, err := agent.QValues(step.Observation)
		if err != nil {
			return err
		}
		action := matutils.MaxVec(qValues)

		step, _ = env.Step(action)
		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", frame))
		if err := renderer.SaveFrame(env, path); err != nil {
			return err
		}
	}

	fmt.Printf("greedy episode lasted %v steps\n", step.Number)
	return nil
}
