package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tirgul/tirgul/internal/config"
	"github.com/tirgul/tirgul/internal/difficulty"
	"github.com/tirgul/tirgul/internal/keylock"
	"github.com/tirgul/tirgul/internal/logger"
	"github.com/tirgul/tirgul/internal/mission"
	"github.com/tirgul/tirgul/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "tirgul",
	Short:        "Adaptive difficulty and mission tracking for practice sessions",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides TIRGUL_DB env var)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(difficultyCmd)
	rootCmd.AddCommand(missionCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is what a command needs to run: the opened store and the services
// built on it.
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	store  *store.Store
	locker keylock.Locker
	closer []func()
}

// setup loads configuration and opens the store. The --db flag wins over
// TIRGUL_DB, which wins over the default data path.
func setup(cmd *cobra.Command) (*env, error) {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	e := &env{cfg: cfg, log: log, closer: []func(){log.Sync}}

	path, _ := cmd.Flags().GetString("db")
	opts, err := cfg.StoreOptions(path)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(ctx, opts)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.store = st
	e.closer = append(e.closer, func() { st.Close() })

	e.locker = keylock.NewLocal()
	if cfg.RedisAddr != "" {
		client, err := keylock.Dial(ctx, cfg.RedisAddr, "", 0)
		if err != nil {
			// Local locking still protects this process.
			log.Warn("redis unavailable, using in-process locks", "addr", cfg.RedisAddr, "error", err)
		} else {
			e.locker = keylock.NewRedis(client, keylock.DefaultTTL)
			e.closer = append(e.closer, func() { client.Close() })
		}
	}
	return e, nil
}

func (e *env) engine() (*difficulty.Engine, error) {
	policy := difficulty.DefaultPolicy()
	if e.cfg.PolicyFile != "" {
		p, err := difficulty.LoadPolicy(e.cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	return difficulty.NewEngine(e.store.AnswerRepo(),
		difficulty.WithLocker(e.locker),
		difficulty.WithLogger(e.log),
		difficulty.WithPolicy(policy),
	), nil
}

func (e *env) tracker() *mission.Tracker {
	return mission.NewTracker(e.store.MissionRepo(), mission.WithLogger(e.log))
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closer) - 1; i >= 0; i-- {
		e.closer[i]()
	}
}
