package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"ainotes/internal/daemonctl"
	"ainotes/internal/testsupport"
)

func TestReadPIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.ReadPID(cfg.PIDPath()); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestReadPIDMalformed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.PIDPath(), []byte("abc\n"))
	if _, err := daemonctl.ReadPID(cfg.PIDPath()); err == nil || errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestProcessInfoReportsCurrentProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())+"\n"))

	alive, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if !alive || pid != os.Getpid() {
		t.Fatalf("alive=%v pid=%d", alive, pid)
	}
}

func TestStopRefusesCurrentProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())))
	if _, err := daemonctl.StopAndTerminate(context.Background(), cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal current process")
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	sleepPath, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep binary not available")
	}
	cfg := testsupport.NewConfig(t)

	cmd := exec.Command(sleepPath, "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	testsupport.WriteFile(t, cfg.PIDPath(), []byte(strconv.Itoa(cmd.Process.Pid)+"\n"))

	result, err := daemonctl.StopAndTerminate(context.Background(), cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("StopAndTerminate: %v", err)
	}
	if result.PID != cmd.Process.Pid {
		t.Fatalf("pid = %d, want %d", result.PID, cmd.Process.Pid)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
}

func TestStopWithStalePIDCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("true binary not available: %v", err)
	}
	testsupport.WriteFile(t, cfg.PIDPath(), []byte(strconv.Itoa(cmd.Process.Pid)))

	_, err := daemonctl.StopAndTerminate(context.Background(), cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if _, statErr := os.Stat(cfg.PIDPath()); !os.IsNotExist(statErr) {
		t.Fatalf("expected pid file removed, got %v", statErr)
	}
}
