// Command dagtrain is the process entry point for the two roles of the
// distributed training layer: a parameter-server master and a training
// worker. Flag handling follows the cobra idiom the examples pack's ollama
// CLI uses throughout its own cmd/ package.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dagtrain/dagtrain/internal/config"
	"github.com/dagtrain/dagtrain/master"
	"github.com/dagtrain/dagtrain/worker"
)

func main() {
	log.SetFlags(log.LstdFlags)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dagtrain",
		Short:         "Computation-graph training master and worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMasterCmd(), newWorkerCmd())
	return root
}

func newMasterCmd() *cobra.Command {
	var weightsPath string
	var port int
	var configPath string

	cmd := &cobra.Command{
		Use:   "master",
		Short: "Run the parameter-server master",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg, err := config.LoadMaster(configPath)
				if err != nil {
					return err
				}
				if weightsPath == "" {
					weightsPath = cfg.WeightsPath
				}
				if port == 0 {
					port = cfg.Port
				}
			}
			return runMaster(weightsPath, port)
		},
	}
	cmd.Flags().StringVar(&weightsPath, "weights", "", "path to persist/load the weights buffer")
	cmd.Flags().IntVar(&port, "port", 9700, "TCP port to listen on")
	cmd.Flags().StringVar(&configPath, "config", "", "optional master.yaml config file")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	var host string
	var port int
	var model string
	var threads int
	var configPath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a training worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg, err := config.LoadWorker(configPath)
				if err != nil {
					return err
				}
				if host == "" {
					host = cfg.Host
				}
				if port == 0 {
					port = cfg.Port
				}
				if model == "" {
					model = cfg.Model
				}
				if threads == 0 {
					threads = cfg.Threads
				}
			}
			return runWorker(host, port, model, threads)
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "master host")
	cmd.Flags().IntVar(&port, "port", 9700, "master TCP port")
	cmd.Flags().StringVar(&model, "model", "", "registered model name to train")
	cmd.Flags().IntVar(&threads, "threads", 0, "training goroutines (0 = one per CPU)")
	cmd.Flags().StringVar(&configPath, "config", "", "optional worker.yaml config file")
	return cmd
}

func runMaster(weightsPath string, port int) error {
	var initial []byte
	if weightsPath != "" {
		if data, err := os.ReadFile(weightsPath); err == nil {
			initial = data
		}
	}

	m := master.New(initial, log.New(os.Stderr, "master: ", log.LstdFlags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- m.ListenAndServe(ctx, fmt.Sprintf(":%d", port)) }()

	var err error
	select {
	case <-ctx.Done():
		err = <-done
	case err = <-done:
	}

	if weightsPath != "" {
		if werr := os.WriteFile(weightsPath, m.Weights(), 0o644); werr != nil {
			log.Printf("master: failed to persist weights to %s: %v", weightsPath, werr)
		}
	}
	return err
}

func runWorker(host string, port int, model string, threads int) error {
	if model == "" {
		return fmt.Errorf("worker: --model is required")
	}
	w := worker.New(fmt.Sprintf("%s:%d", host, port), model, log.New(os.Stderr, "worker: ", log.LstdFlags))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return w.Run(ctx, threads)
}
