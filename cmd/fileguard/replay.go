package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/fileguard/access"
	"github.com/brettbedarf/fileguard/internal/util"
	"github.com/brettbedarf/fileguard/requests"
)

var dumpState bool

func buildReplayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [script]",
		Short: "Run a script of access operations against one manager",
		Long: `Runs each operation of a YAML or JSON script in order and prints its result.

Operations:
  begin   path [intent] [category]   request access (intent default read)
  end     path                       release one grant
  delete  path                       safe delete, deferred while in use
  sweep   [force]                    process pending deletions
  clear                              drop the deletion ledger
  status  [path]                     state of a path, or the manager stats

Example script:
  - op: begin
    path: ./cache/a.png
  - op: delete
    path: ./cache/a.png      # file_locked: deferred
  - op: end
    path: ./cache/a.png      # last release removes the file
  - op: status
    path: ./cache/a.png      # deleted

With "-" as the script, JSON operations are read from stdin one per line and
applied as they arrive:
  echo '{"op":"delete","path":"./cache/a.png"}' | fileguard replay -

Examples:
  fileguard replay ./scripts/deferred.yaml
  fileguard replay --dump ./scripts/deferred.json`,
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}

	cmd.Flags().BoolVar(&dumpState, "dump", false, "Print the final tracked, pending and deleted files as YAML")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	streaming := args[0] == "-"
	var ops []requests.Operation
	if !streaming {
		ops, err = requests.LoadScriptFile(args[0])
		if err != nil {
			return err
		}
	}
	logger := util.GetLogger("main")
	logger.Debug().Str("script", args[0]).Int("operations", len(ops)).Msg("Script loaded")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := access.NewManager(cfg)
	mgr.Start(ctx)

	out := cmd.OutOrStdout()
	if streaming {
		err = replayStream(ctx, cmd.InOrStdin(), out, mgr)
	} else {
		err = replayOperations(ctx, out, mgr, ops)
	}
	if cerr := mgr.Close(); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to close access manager")
	}
	if err != nil {
		return err
	}

	printSummary(out, mgr.Stats())
	if dumpState {
		return dumpManagerState(out, mgr)
	}
	return nil
}

// replayOperations applies ops in order. Invalid operations are reported and
// skipped; only a cancelled context stops the replay early.
func replayOperations(ctx context.Context, w io.Writer, mgr *access.Manager, ops []requests.Operation) error {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := applyOperation(mgr, op)
		if err != nil {
			fmt.Fprintf(w, "ERROR: [%s] %s %s: %v\n", op.ID, op.Op, op.Path, err)
			continue
		}
		fmt.Fprintf(w, "%s: [%s] %s\n", op.Op, op.ID, line)
	}
	return nil
}

// replayStream applies one JSON operation per input line until EOF.
// Blank lines are skipped and undecodable lines reported.
func replayStream(ctx context.Context, r io.Reader, w io.Writer, mgr *access.Manager) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		op, err := requests.UnmarshalOperation(data)
		if err != nil {
			fmt.Fprintf(w, "ERROR: line %d: %v\n", line, err)
			continue
		}
		if err := replayOperations(ctx, w, mgr, []requests.Operation{*op}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func applyOperation(mgr *access.Manager, op requests.Operation) (string, error) {
	switch op.Op {
	case requests.OpBegin:
		result, err := mgr.TryBeginAccess(op.Path, op.Intent, op.Category)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s -> %s", op.Path, op.Intent, op.Category, result), nil
	case requests.OpEnd:
		if err := mgr.EndAccess(op.Path); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s -> refs %d", op.Path, mgr.RefCount(op.Path)), nil
	case requests.OpDelete:
		result, err := mgr.TrySafeDelete(op.Path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s -> %s", op.Path, result), nil
	case requests.OpSweep:
		var report access.SweepReport
		if op.Force {
			report = mgr.ForceProcessPendingDeletions()
		} else {
			report = mgr.ProcessPendingDeletions()
		}
		if report.Skipped {
			return "skipped (rate limited)", nil
		}
		return fmt.Sprintf("completed %d expired %d waiting %d", report.Completed, report.Expired, report.Waiting), nil
	case requests.OpClear:
		return fmt.Sprintf("cleared %d records", mgr.ClearDeletedRecords()), nil
	case requests.OpStatus:
		if op.Path == "" {
			s := mgr.Stats()
			return fmt.Sprintf("tracked %d refs %d pending %d deleted %d",
				s.TrackedFiles, s.OutstandingRefs, s.PendingDeletions, s.DeletedFiles), nil
		}
		return fmt.Sprintf("%s -> %s refs %d", op.Path, mgr.State(op.Path), mgr.RefCount(op.Path)), nil
	default:
		return "", fmt.Errorf("%w: unknown op %q", requests.ErrInvalidOperation, op.Op)
	}
}

type managerDump struct {
	InUse   []access.InUseFile       `yaml:"in_use"`
	Pending []access.PendingDeletion `yaml:"pending"`
	Deleted []access.DeletedFile     `yaml:"deleted"`
	Stats   access.Stats             `yaml:"stats"`
}

func dumpManagerState(w io.Writer, mgr *access.Manager) error {
	fmt.Fprintln(w)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(managerDump{
		InUse:   mgr.GetInUseFiles(),
		Pending: mgr.GetPendingDeletions(),
		Deleted: mgr.GetDeletedFiles(),
		Stats:   mgr.Stats(),
	}); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return enc.Close()
}
