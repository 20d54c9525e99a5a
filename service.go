package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"classifier_backend/core"
	"classifier_backend/shutdown"
)

// serviceStopTimeout bounds how long Stop waits for serve to return.
const serviceStopTimeout = shutdown.DefaultTimeout + 5*time.Second

const serviceUsage = `Usage: classifier service <action>

Actions:
  install    register "classifier serve" with the system service manager
  uninstall  remove the service (alias: remove)
  start      start the installed service
  stop       stop the installed service
  restart    stop and then start the service
  status     print the service status
  run        run under the service manager (used by the installed unit)
`

// program runs serve under a service manager. The manager calls Start and
// Stop; Stop triggers the same shutdown path as a signal does.
type program struct {
	cfg    *core.Config
	logger *zap.Logger

	sm   *shutdown.Manager
	exit chan struct{}
	err  error
}

func (p *program) Start(s service.Service) error {
	p.sm = shutdown.NewManager(p.logger.Named("shutdown"))
	p.exit = make(chan struct{})
	go func() {
		defer close(p.exit)
		p.err = serve(p.cfg, "", p.logger, p.sm)
		if p.err != nil {
			p.logger.Error("service stopped with error", zap.Error(p.err))
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.sm.Trigger()
	select {
	case <-p.exit:
		return p.err
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("timeout waiting for service to stop")
	}
}

// serviceConfig describes the installed unit. The working directory is
// captured at install time so the service finds the same .env file.
func serviceConfig() *service.Config {
	wd, _ := os.Getwd()
	return &service.Config{
		Name:             "classifier",
		DisplayName:      "Image Classifier",
		Description:      "Serves top-K image classification over HTTP",
		Arguments:        []string{"service", "run"},
		WorkingDirectory: wd,
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
}

func runService(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprint(stderr, serviceUsage)
		return core.ExitCodeUsage
	}

	prg := &program{}
	s, err := service.New(prg, serviceConfig())
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create service: %v\n", err)
		return core.ExitCodeError
	}

	action := args[0]
	switch action {
	case "run":
		return runServiceProgram(prg, s, stderr)
	case "status":
		status, err := s.Status()
		if err != nil && !errors.Is(err, service.ErrNotInstalled) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return core.ExitCodeError
		}
		fmt.Fprintln(stdout, serviceStatusName(status, err))
		return core.ExitCodeSuccess
	case "remove":
		action = "uninstall"
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, serviceUsage)
		return core.ExitCodeSuccess
	}

	if !isControlAction(action) {
		fmt.Fprintf(stderr, "unknown service action %q\n\n%s", action, serviceUsage)
		return core.ExitCodeUsage
	}
	if err := service.Control(s, action); err != nil {
		fmt.Fprintf(stderr, "Error: failed to %s service: %v\n", action, err)
		return core.ExitCodeError
	}
	fmt.Fprintf(stdout, "Service %s: ok\n", action)
	return core.ExitCodeSuccess
}

func isControlAction(action string) bool {
	for _, a := range service.ControlAction {
		if a == action {
			return true
		}
	}
	return false
}

func serviceStatusName(status service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "Service is not installed"
	}
	switch status {
	case service.StatusRunning:
		return "Service is running"
	case service.StatusStopped:
		return "Service is stopped"
	default:
		return "Service status unknown"
	}
}

// runServiceProgram loads configuration and hands control to the service
// manager until it stops the program.
func runServiceProgram(prg *program, s service.Service, stderr io.Writer) int {
	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeFor(err)
	}
	logger, err := newLogger(cfg, zapcore.InfoLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	prg.cfg = cfg
	prg.logger = logger.Zap().Named("service")
	if err := s.Run(); err != nil {
		logger.Error("service run failed", zap.Error(err))
		return core.ExitCodeError
	}
	if prg.err != nil {
		return core.ExitCodeFor(prg.err)
	}
	return core.ExitCodeSuccess
}
