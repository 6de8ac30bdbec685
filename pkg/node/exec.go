package node

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"micronet/api"
)

// DefaultTraceDir is where per-node workload output goes.
const DefaultTraceDir = "traces"

// ExecOptions control how a workload is started inside a node.
type ExecOptions struct {
	TraceDir   string   // <TraceDir>/<node>/ receives logs and qlog files
	Env        []string // extra KEY=VALUE entries
	Background bool     // do not wait for the command
}

// TraceDir returns the directory that collects the output of node id.
func TraceDir(base, id string) string {
	if base == "" {
		base = DefaultTraceDir
	}
	return filepath.Join(base, id)
}

// Exec runs argv inside the network namespace of node id. The command's
// stdout and stderr go to <trace dir>/<node>/<program>.log and QLOGDIR
// points at the same directory.
func (nm *NodeManager) Exec(ctx context.Context, id string, argv []string, opts ExecOptions) (*exec.Cmd, error) {
	if len(argv) == 0 {
		return nil, api.Configf("no command given for node %s", id)
	}

	dir, err := filepath.Abs(TraceDir(opts.TraceDir, id))
	if err != nil {
		return nil, errors.Wrap(err, "resolve trace dir")
	}
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create trace dir %s", dir)
	}
	logPath := filepath.Join(dir, filepath.Base(argv[0])+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", logPath)
	}
	defer logFile.Close()

	var cmd *exec.Cmd
	if opts.Background {
		// a background workload outlives the caller's context
		cmd = exec.Command(argv[0], argv[1:]...)
	} else {
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	}
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "QLOGDIR="+dir)
	cmd.Env = append(cmd.Env, opts.Env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	logrus.WithField("node", id).Infof("starting %v, output in %s", argv, logPath)
	if err = nm.nc.Run(id, cmd, !opts.Background); err != nil {
		return cmd, api.EnvError("exec "+argv[0], id, err)
	}
	return cmd, nil
}
