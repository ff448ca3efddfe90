package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/roach88/supdto/internal/dtojson"
	"github.com/roach88/supdto/internal/store"
)

// ArchiveOptions holds flags shared by the archive subcommands.
type ArchiveOptions struct {
	*RootOptions
	Database string

	// IDGenerator overrides snapshot ids (for testing). If nil, the store
	// mints UUIDv7 ids.
	IDGenerator store.IDGenerator
}

// SnapshotResult describes an archived snapshot.
type SnapshotResult struct {
	ID          string         `json:"id"`
	Key         string         `json:"key"`
	Seq         int64          `json:"seq"`
	Type        string         `json:"type"`
	Fingerprint string         `json:"fingerprint"`
	Digest      string         `json:"digest"`
	Value       jsontext.Value `json:"value,omitzero"`
}

// NewArchiveCommand creates the archive command and its subcommands.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	return newArchiveCommand(&ArchiveOptions{RootOptions: rootOpts})
}

func newArchiveCommand(opts *ArchiveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Store and retrieve value snapshots",
		Long: `Keep numbered snapshots of values under string keys in a SQLite archive.

Each put appends a snapshot; get returns the latest (or a given --seq);
history lists every snapshot of a key in order.

Example:
  supdto archive put frame frame.json
  supdto archive get frame --seq 2
  supdto archive history frame --db /tmp/frames.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: archive.path from config)")

	cmd.AddCommand(newArchivePutCommand(opts))
	cmd.AddCommand(newArchiveGetCommand(opts))
	cmd.AddCommand(newArchiveHistoryCommand(opts))
	cmd.AddCommand(newArchiveKeysCommand(opts))

	return cmd
}

func (o *ArchiveOptions) open() (*store.Store, error) {
	path := o.Database
	if path == "" {
		path = o.config().Archive.Path
	}
	storeOpts := []store.Option{store.WithLogger(o.logger())}
	if o.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(o.IDGenerator))
	}
	o.logger().Debug("opening archive", "path", path)
	return store.Open(path, storeOpts...)
}

// archiveFail reports a store error, as not found for missing rows.
func archiveFail(f *OutputFormatter, message string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return f.Fail(ErrCodeNotFound, message, err)
	}
	if code, _ := classify(err); code != ErrCodeGeneric {
		return f.Fail("", message, err)
	}
	return f.Fail(ErrCodeArchive, message, err)
}

func snapshotResult(snap store.Snapshot, withValue bool, opts []dtojson.Option) (SnapshotResult, error) {
	r := SnapshotResult{
		ID:          snap.ID,
		Key:         snap.Key,
		Seq:         snap.Seq,
		Type:        snap.Value.Type().String(),
		Fingerprint: snap.Fingerprint,
		Digest:      snap.Digest,
	}
	if withValue {
		out, err := dtojson.ValueToJSON(snap.Value, opts...)
		if err != nil {
			return SnapshotResult{}, err
		}
		r.Value = jsontext.Value(out)
	}
	return r, nil
}

func newArchivePutCommand(opts *ArchiveOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "put <key> [file]",
		Short:         "Append a value document as the next snapshot of key",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchivePut(cmd.Context(), opts, args[0], args[1:], cmd)
		},
	}
}

func runArchivePut(ctx context.Context, opts *ArchiveOptions, key string, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg, err := loadRegistry(opts.config(), opts.logger())
	if err != nil {
		return formatter.Fail("", "failed to load types", err)
	}
	data, source, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return inputError(formatter, source, err)
	}
	v, err := dtojson.ValueFromJSON(reg, data)
	if err != nil {
		return formatter.Fail("", "invalid value in "+source, err)
	}

	st, err := opts.open()
	if err != nil {
		return formatter.Fail(ErrCodeArchive, "failed to open archive", err)
	}
	defer st.Close()

	snap, err := st.Put(contextOrBackground(ctx), key, v)
	if err != nil {
		return archiveFail(formatter, "failed to archive "+key, err)
	}

	if formatter.Format == "json" {
		r, err := snapshotResult(snap, false, nil)
		if err != nil {
			return formatter.Fail("", "failed to render snapshot", err)
		}
		return formatter.Success(r)
	}
	fmt.Fprintf(formatter.Writer, "archived %s #%d (%s)\n", snap.Key, snap.Seq, snap.ID)
	return nil
}

func newArchiveGetCommand(opts *ArchiveOptions) *cobra.Command {
	var seq int64
	var pretty bool

	cmd := &cobra.Command{
		Use:           "get <key>",
		Short:         "Print the latest snapshot of key, or the one at --seq",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveGet(cmd.Context(), opts, args[0], seq, pretty, cmd)
		},
	}

	cmd.Flags().Int64Var(&seq, "seq", 0, "snapshot number (default: latest)")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "indent the output")

	return cmd
}

func runArchiveGet(ctx context.Context, opts *ArchiveOptions, key string, seq int64, pretty bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx = contextOrBackground(ctx)

	st, err := opts.open()
	if err != nil {
		return formatter.Fail(ErrCodeArchive, "failed to open archive", err)
	}
	defer st.Close()

	var snap store.Snapshot
	if seq == 0 {
		snap, err = st.Latest(ctx, key)
	} else {
		snap, err = findSeq(ctx, st, key, seq)
	}
	if err != nil {
		return archiveFail(formatter, "failed to read "+key, err)
	}

	r, err := snapshotResult(snap, true, jsonOptions(opts.config(), pretty))
	if err != nil {
		return formatter.Fail("", "failed to render snapshot", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(r)
	}
	return formatter.Success(r.Value)
}

func findSeq(ctx context.Context, st *store.Store, key string, seq int64) (store.Snapshot, error) {
	history, err := st.History(ctx, key)
	if err != nil {
		return store.Snapshot{}, err
	}
	for _, snap := range history {
		if snap.Seq == seq {
			return snap, nil
		}
	}
	return store.Snapshot{}, fmt.Errorf("%s #%d: %w", key, seq, sql.ErrNoRows)
}

func newArchiveHistoryCommand(opts *ArchiveOptions) *cobra.Command {
	var values bool

	cmd := &cobra.Command{
		Use:           "history <key>",
		Short:         "List every snapshot of key, oldest first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveHistory(cmd.Context(), opts, args[0], values, cmd)
		},
	}

	cmd.Flags().BoolVar(&values, "values", false, "include each snapshot's value")

	return cmd
}

func runArchiveHistory(ctx context.Context, opts *ArchiveOptions, key string, values bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := opts.open()
	if err != nil {
		return formatter.Fail(ErrCodeArchive, "failed to open archive", err)
	}
	defer st.Close()

	history, err := st.History(contextOrBackground(ctx), key)
	if err != nil {
		return archiveFail(formatter, "failed to read "+key, err)
	}

	results := make([]SnapshotResult, 0, len(history))
	for _, snap := range history {
		r, err := snapshotResult(snap, values, nil)
		if err != nil {
			return formatter.Fail("", "failed to render snapshot", err)
		}
		results = append(results, r)
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	if len(results) == 0 {
		fmt.Fprintf(formatter.Writer, "no snapshots for %s\n", key)
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "%d\t%s\t%s\t%s\n", r.Seq, r.ID, shortDigest(r.Digest), r.Type)
		if values {
			fmt.Fprintf(formatter.Writer, "\t%s\n", string(r.Value))
		}
	}
	return nil
}

func newArchiveKeysCommand(opts *ArchiveOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "keys",
		Short:         "List archived keys",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

			st, err := opts.open()
			if err != nil {
				return formatter.Fail(ErrCodeArchive, "failed to open archive", err)
			}
			defer st.Close()

			keys, err := st.Keys(contextOrBackground(cmd.Context()))
			if err != nil {
				return archiveFail(formatter, "failed to list keys", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(keys)
			}
			for _, k := range keys {
				fmt.Fprintln(formatter.Writer, k)
			}
			return nil
		},
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// contextOrBackground returns ctx, or context.Background when a command is
// executed without one.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
