// Package chemstorectl implements the command-line client for chemstore.
package chemstorectl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/chemstore/chemstore/internal/auth"
	"github.com/chemstore/chemstore/internal/config"
	"github.com/chemstore/chemstore/internal/db"
	"github.com/chemstore/chemstore/internal/docstore"
	"github.com/chemstore/chemstore/internal/docstore/local"
	"github.com/chemstore/chemstore/internal/docstore/s3"
	"github.com/chemstore/chemstore/internal/observability"
	"github.com/chemstore/chemstore/internal/pubchem"
	"github.com/chemstore/chemstore/internal/query"
	"github.com/chemstore/chemstore/internal/schema"
)

type Options struct {
	Lookup config.LookupFunc
	Stdout io.Writer
	Stderr io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	lookup := defaults.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	fs := flag.NewFlagSet("chemstorectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	command := strings.TrimSpace(fs.Arg(0))
	rest := fs.Args()[1:]

	handler, ok := commands[command]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	cfg, err := config.Load("chemstorectl", lookup)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	app := &app{
		cfg:    cfg,
		logger: observability.NewLogger(cfg, stderr),
		stdout: stdout,
		stderr: stderr,
	}
	defer app.close()

	if err := handler(ctx, app, rest); err != nil {
		if errors.Is(err, errUsage) {
			writeUsage(stderr)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage")

type handlerFunc func(ctx context.Context, a *app, args []string) error

var commands = map[string]handlerFunc{
	"tables":      runTables,
	"columns":     runColumns,
	"select":      runSelect,
	"search":      runSearch,
	"insert":      runInsert,
	"update":      runUpdate,
	"export":      runExport,
	"login":       runLogin,
	"user-create": runUserCreate,
	"user-list":   runUserList,
	"user-role":   runUserRole,
	"user-passwd": runUserPasswd,
	"user-delete": runUserDelete,
	"doc-put":     runDocPut,
	"doc-get":     runDocGet,
	"doc-list":    runDocList,
	"doc-search":  runDocSearch,
	"doc-delete":  runDocDelete,
	"cas-lookup":  runCASLookup,
}

// app holds lazily constructed dependencies shared by the command handlers.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	handle  *db.Handle
	catalog *schema.Catalog
	engine  *query.Engine
}

func (a *app) database() (*db.Handle, *schema.Catalog, *query.Engine, error) {
	if a.handle != nil {
		return a.handle, a.catalog, a.engine, nil
	}
	handle, err := db.New(a.cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	a.handle = handle
	a.catalog = schema.NewCatalog(handle)
	a.engine = query.NewEngine(handle, a.catalog)
	return a.handle, a.catalog, a.engine, nil
}

func (a *app) credentials(ctx context.Context) (*auth.CredentialStore, error) {
	handle, catalog, engine, err := a.database()
	if err != nil {
		return nil, err
	}
	return auth.NewCredentialStore(ctx, handle, catalog, engine, a.logger, a.cfg.Auth)
}

func (a *app) documents(ctx context.Context) (docstore.Store, error) {
	switch a.cfg.DocStore.Backend {
	case "local":
		return local.New(a.cfg.DocStore.LocalDir)
	case "s3":
		return s3.New(ctx, a.cfg.DocStore)
	default:
		return nil, fmt.Errorf("unsupported document store backend %q", a.cfg.DocStore.Backend)
	}
}

func (a *app) close() {
	if a.handle != nil {
		_ = a.handle.Close()
	}
}

func runTables(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	_, catalog, _, err := a.database()
	if err != nil {
		return err
	}
	tables, err := catalog.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		_, _ = fmt.Fprintln(a.stdout, table)
	}
	return nil
}

func runColumns(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	_, catalog, _, err := a.database()
	if err != nil {
		return err
	}
	columns, err := catalog.Columns(ctx, args[0])
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tKEY")
	for _, column := range columns {
		key := ""
		if column.PrimaryKey {
			key = "primary"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", column.Name, column.Type, key)
	}
	return tw.Flush()
}

func runSelect(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	_, _, engine, err := a.database()
	if err != nil {
		return err
	}
	rows, err := engine.SelectAll(ctx, args[0])
	if err != nil {
		return err
	}
	return writeRows(a.stdout, rows)
}

func runSearch(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	_, _, engine, err := a.database()
	if err != nil {
		return err
	}
	rows, err := engine.Search(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return writeRows(a.stdout, rows)
}

func runInsert(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	values, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	_, _, engine, err := a.database()
	if err != nil {
		return err
	}
	return engine.InsertRow(ctx, args[0], values)
}

func runUpdate(ctx context.Context, a *app, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	values, err := parseAssignments(args[2:])
	if err != nil {
		return err
	}
	_, _, engine, err := a.database()
	if err != nil {
		return err
	}
	return engine.UpdateRow(ctx, args[0], values, args[1])
}

func runExport(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	_, _, engine, err := a.database()
	if err != nil {
		return err
	}
	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	rows, err := engine.ExportParquet(ctx, args[0], out)
	if err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "exported %d rows to %s\n", rows, args[1])
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	store, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	user, err := store.VerifyLogin(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "%s (%s)\n", user.Name, user.Role)
	return nil
}

func runUserCreate(ctx context.Context, a *app, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	store, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	return store.CreateUser(ctx, args[0], args[1], args[2])
}

func runUserList(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	store, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "USERNAME\tROLE")
	for _, user := range users {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", user.Name, user.Role)
	}
	return tw.Flush()
}

func runUserRole(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	store, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	return store.UpdateUserRole(ctx, args[0], args[1])
}

func runUserPasswd(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	store, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	return store.ChangePassword(ctx, args[0], args[1])
}

func runUserDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	store, err := a.credentials(ctx)
	if err != nil {
		return err
	}
	return store.DeleteUser(ctx, args[0])
}

func runDocPut(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	store, err := a.documents(ctx)
	if err != nil {
		return err
	}
	file, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	info, err := store.Put(ctx, args[0], file, stat.Size(), docstore.PutOptions{ContentType: "application/pdf"})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "stored %s (%d bytes)\n", info.Name, info.Size)
	return nil
}

func runDocGet(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	store, err := a.documents(ctx)
	if err != nil {
		return err
	}
	body, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()
	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func runDocList(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	store, err := a.documents(ctx)
	if err != nil {
		return err
	}
	docs, err := store.List(ctx)
	if err != nil {
		return err
	}
	return writeDocs(a.stdout, docs)
}

func runDocSearch(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	store, err := a.documents(ctx)
	if err != nil {
		return err
	}
	docs, err := docstore.Search(ctx, store, args[0])
	if err != nil {
		return err
	}
	return writeDocs(a.stdout, docs)
}

func runDocDelete(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	store, err := a.documents(ctx)
	if err != nil {
		return err
	}
	return store.Delete(ctx, args[0])
}

func runCASLookup(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	client, err := pubchem.NewClient(a.cfg.PubChem)
	if err != nil {
		return err
	}
	cid, err := client.ResolveCID(ctx, args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "cid %d\n%s\n", cid, pubchem.CompoundURL(cid))
	return nil
}

// parseAssignments turns "column=value" arguments into a value map.
// An assignment with an empty value binds NULL.
func parseAssignments(args []string) (map[string]query.Value, error) {
	values := make(map[string]query.Value, len(args))
	for _, arg := range args {
		name, raw, found := strings.Cut(arg, "=")
		if !found || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid assignment %q, want column=value", arg)
		}
		if raw == "" {
			values[name] = query.Null
			continue
		}
		values[name] = query.NewValue(raw)
	}
	return values, nil
}

func writeRows(w io.Writer, rows []query.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(rows[0].Columns, "\t"))
	for _, row := range rows {
		cells := make([]string, 0, len(row.Columns))
		for _, column := range row.Columns {
			value, _ := row.Get(column)
			if !value.Valid {
				cells = append(cells, "NULL")
				continue
			}
			cells = append(cells, value.String)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeDocs(w io.Writer, docs []docstore.DocumentInfo) error {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, doc := range docs {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", doc.Name, doc.Size, doc.LastModified.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: chemstorectl <command> [arguments]

Catalog and data:
  tables                                 list user tables
  columns <table>                        describe a table
  select <table>                         print every row
  search <table> <text>                  substring search across text columns
  insert <table> <col=value> ...         insert a row (empty value binds NULL)
  update <table> <key> <col=value> ...   update the row matching the key column
  export <table> <file>                  export a table to a Parquet file

Accounts:
  login <username> <password>            verify credentials
  user-create <username> <password> <role>
  user-list
  user-role <username> <role>
  user-passwd <username> <password>
  user-delete <username>

Documents:
  doc-put <name> <file>
  doc-get <name> <file>
  doc-list
  doc-search <text>
  doc-delete <name>

Reference data:
  cas-lookup <cas>                       resolve a CAS number to a PubChem CID
`)
}
