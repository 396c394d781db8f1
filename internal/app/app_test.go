package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qrganizer/internal/config"
	"qrganizer/internal/encryption"
	"qrganizer/internal/interpreter"
	"qrganizer/internal/inventory"
	"qrganizer/internal/testutil"
	"qrganizer/internal/vault"
)

const testPassphrase = "correct horse battery staple"

// newTestConfig returns a sqlite config rooted in a temp dir with a
// filesystem vault, age keys already generated and the stub interpreter.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Interpreter.Type = "stub"
	cfg.Interpreter.Rules = []config.StubRule{
		{Text: "make a garage", Action: "create_space", SpaceName: "garage"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := encryption.NewAgeSealer(cfg.Encryption).GenerateKeys(testPassphrase); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	return cfg
}

func openTestApp(t *testing.T, cfg *config.Config) *QRApp {
	t.Helper()
	a, err := NewQRApp(context.Background(), cfg, "Test", Options{IDs: testutil.NewSequentialIDs()})
	if err != nil {
		t.Fatalf("NewQRApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewQRApp_WiresEverything(t *testing.T) {
	cfg := newTestConfig(t)
	a := openTestApp(t, cfg)

	if a.OperationID() != "id-1" {
		t.Errorf("OperationID() = %q, want id-1", a.OperationID())
	}
	if _, err := os.Stat(filepath.Join(cfg.Database.DataDir, "qrganizer.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if err := a.DB().CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}

	out, err := a.Say(context.Background(), "make a garage")
	if err != nil {
		t.Fatalf("Say() error = %v", err)
	}
	if out.Message != "Space 'Garage' created" {
		t.Errorf("Say() message = %q", out.Message)
	}

	hist, err := a.History(context.Background(), 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(hist) != 1 {
		t.Errorf("len(History()) = %d, want 1", len(hist))
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "\tid-1\tcommand dispatched") {
		t.Errorf("log does not carry the operation id:\n%s", data)
	}
}

func TestNewQRApp_BadConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Database.Type = "postgres"
	if _, err := NewQRApp(context.Background(), cfg, "Test", Options{}); err == nil {
		t.Error("NewQRApp() error = nil, want unknown database type")
	}
}

func TestQRApp_RefsByNameOrID(t *testing.T) {
	ctx := context.Background()
	a := openTestApp(t, newTestConfig(t))

	garage, err := a.AddSpace(ctx, "Garage", "")
	if err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}
	shelf, err := a.AddSpace(ctx, "Shelf", "garage")
	if err != nil {
		t.Fatalf("AddSpace(under name) error = %v", err)
	}
	if shelf.ParentID == nil || *shelf.ParentID != garage.ID || shelf.Depth != 1 {
		t.Errorf("Shelf = %+v, want child of Garage", shelf)
	}

	desc := "red handle"
	if _, err := a.AddItem(ctx, "Hammer", &desc, "#2"); err != nil {
		t.Fatalf("AddItem(by id) error = %v", err)
	}
	items, err := a.ListItems(ctx, "shelf")
	if err != nil || len(items) != 1 {
		t.Fatalf("ListItems(shelf) = %v, %v", items, err)
	}

	if _, err := a.MoveItem(ctx, "hamer", "Garage"); err != nil {
		t.Fatalf("MoveItem(fuzzy) error = %v", err)
	}
	it, err := a.UpdateItem(ctx, "Hammer", "Claw hammer", nil)
	if err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if it.Name != "Claw hammer" || it.Description == nil || *it.Description != desc {
		t.Errorf("UpdateItem() = %+v, want description kept", it)
	}

	if _, err := a.MoveSpace(ctx, "Garage", "Shelf"); !errors.Is(err, inventory.ErrCycleDetected) {
		t.Errorf("MoveSpace(cycle) error = %v, want ErrCycleDetected", err)
	}
	if _, err := a.MoveSpace(ctx, "Shelf", ""); err != nil {
		t.Fatalf("MoveSpace(to root) error = %v", err)
	}
	tree, err := a.Tree(ctx, "")
	if err != nil || len(tree) != 2 {
		t.Fatalf("Tree() = %d roots, %v; want 2", len(tree), err)
	}

	if _, err := a.RenameSpace(ctx, "Bin", "Box"); !errors.Is(err, inventory.ErrNoMatch) {
		t.Errorf("RenameSpace(unknown) error = %v, want ErrNoMatch", err)
	}

	sp, res, err := a.RemoveSpace(ctx, "garage", false)
	if err != nil {
		t.Fatalf("RemoveSpace() error = %v", err)
	}
	if sp.Name != "Garage" || res.Spaces != 1 || res.Items != 1 {
		t.Errorf("RemoveSpace() = %s %+v, want Garage with 1 space, 1 item", sp.Name, res)
	}
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	a := openTestApp(t, cfg)
	if _, err := a.AddSpace(ctx, "Garage", ""); err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}
	if _, err := a.AddItem(ctx, "Hammer", nil, "Garage"); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	res, err := a.Backup(ctx)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if res.Version <= 0 || res.Bytes <= 0 || len(res.Vaults) != 1 {
		t.Errorf("Backup() = %+v", res)
	}
	a.Close()

	// Lose the local database.
	if err := os.RemoveAll(cfg.Database.DataDir); err != nil {
		t.Fatal(err)
	}

	if _, err := NewQRApp(ctx, cfg, "Test", Options{}); !errors.Is(err, ErrBehindVault) {
		t.Fatalf("NewQRApp() on empty database error = %v, want ErrBehindVault", err)
	}
	os.RemoveAll(cfg.Database.DataDir)

	if _, err := Restore(ctx, cfg, "wrong", false, nil); err == nil {
		t.Fatal("Restore() with wrong passphrase error = nil")
	}

	rr, err := Restore(ctx, cfg, testPassphrase, false, nil)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if rr.Version != res.Version || rr.Vault != "local" {
		t.Errorf("Restore() = %+v, want version %d from local", rr, res.Version)
	}

	b := openTestApp(t, cfg)
	items, err := b.ListItems(ctx, "Garage")
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 1 || items[0].Name != "Hammer" {
		t.Errorf("restored items = %+v", items)
	}

	// Local changes past the snapshot are protected.
	if _, err := b.AddSpace(ctx, "Attic", ""); err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}
	b.Close()
	if _, err := Restore(ctx, cfg, testPassphrase, false, nil); !errors.Is(err, ErrLocalAhead) {
		t.Errorf("Restore() error = %v, want ErrLocalAhead", err)
	}
	if _, err := Restore(ctx, cfg, testPassphrase, true, nil); err != nil {
		t.Errorf("Restore(force) error = %v", err)
	}
}

func TestBackup_NoKeys(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Interpreter.Type = "stub"
	a := openTestApp(t, cfg)

	if _, err := a.Backup(context.Background()); err == nil {
		t.Error("Backup() without keys error = nil")
	}
}

func TestRestore_NothingToRestore(t *testing.T) {
	cfg := newTestConfig(t)
	if _, err := Restore(context.Background(), cfg, testPassphrase, false, nil); err == nil {
		t.Error("Restore() from empty vault error = nil")
	}
}

func TestServe(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Server.Addr = "127.0.0.1:0"
	a := openTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, func(addr string) { addrCh <- addr }) }()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("Serve() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Post("http://"+addr+"/voice/interpret", "application/json", strings.NewReader(`{"text":"make a garage"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Space 'Garage' created") {
		t.Errorf("POST = %d %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestQRApp_InjectedInterpreter(t *testing.T) {
	cfg := newTestConfig(t)
	stub := interpreter.NewStub(map[string]interpreter.Intent{
		"where is my hammer": {Action: interpreter.ActionFindItem, ItemName: "hammer"},
	})
	a, err := NewQRApp(context.Background(), cfg, "Test", Options{Interpreter: stub})
	if err != nil {
		t.Fatalf("NewQRApp() error = %v", err)
	}
	defer a.Close()

	out, err := a.Say(context.Background(), "where is my hammer")
	if err != nil {
		t.Fatalf("Say() error = %v", err)
	}
	if out.Message != "No item found named 'hammer'." {
		t.Errorf("Say() message = %q", out.Message)
	}
}

func TestQRApp_FuzzyRefs(t *testing.T) {
	ctx := context.Background()
	var notices bytes.Buffer
	a, err := NewQRApp(ctx, newTestConfig(t), "Test", Options{IDs: testutil.NewSequentialIDs(), Notices: &notices})
	if err != nil {
		t.Fatalf("NewQRApp() error = %v", err)
	}
	defer a.Close()

	garage, err := a.AddSpace(ctx, "Garage", "")
	if err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}
	if _, err := a.AddSpace(ctx, "Shelf", "Garage"); err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}
	if _, err := a.AddItem(ctx, "Hammer", nil, "Shelf"); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if notices.Len() != 0 {
		t.Errorf("notices after exact refs = %q, want none", notices.String())
	}

	t.Run("non-destructive operations report the substitution", func(t *testing.T) {
		notices.Reset()
		if _, err := a.Children(ctx, "Garagee"); err != nil {
			t.Fatalf("Children() error = %v", err)
		}
		if got, want := notices.String(), "Assumed 'Garage' for 'Garagee'\n"; got != want {
			t.Errorf("notices = %q, want %q", got, want)
		}
	})

	t.Run("removal refuses an unconfirmed fuzzy match", func(t *testing.T) {
		if _, _, err := a.RemoveSpace(ctx, "Garagee", false); !errors.Is(err, ErrUnconfirmedMatch) {
			t.Fatalf("RemoveSpace(fuzzy) error = %v, want ErrUnconfirmedMatch", err)
		}
		if _, err := a.RemoveItem(ctx, "Hamer", false); !errors.Is(err, ErrUnconfirmedMatch) {
			t.Fatalf("RemoveItem(fuzzy) error = %v, want ErrUnconfirmedMatch", err)
		}
		tree, err := a.Tree(ctx, "")
		if err != nil {
			t.Fatalf("Tree() error = %v", err)
		}
		if len(tree) != 1 || len(tree[0].Children) != 1 || len(tree[0].Children[0].Items) != 1 {
			t.Errorf("tree changed after refused removals: %+v", tree)
		}
	})

	t.Run("removal by id needs no confirmation", func(t *testing.T) {
		_, res, err := a.RemoveSpace(ctx, fmt.Sprintf("#%d", garage.ID), false)
		if err != nil {
			t.Fatalf("RemoveSpace(#id) error = %v", err)
		}
		if res.Spaces != 2 || res.Items != 1 {
			t.Errorf("RemoveSpace(#id) = %+v, want 2 spaces and 1 item", res)
		}
	})

	t.Run("confirmed fuzzy removal", func(t *testing.T) {
		if _, err := a.AddItem(ctx, "Ladder", nil, ""); err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		it, err := a.RemoveItem(ctx, "Ladderr", true)
		if err != nil {
			t.Fatalf("RemoveItem(confirmed) error = %v", err)
		}
		if it.Name != "Ladder" {
			t.Errorf("RemoveItem(confirmed) removed %q, want Ladder", it.Name)
		}
	})
}

func TestQRApp_NumericNames(t *testing.T) {
	ctx := context.Background()
	a := openTestApp(t, newTestConfig(t))

	year, err := a.AddSpace(ctx, "2024", "")
	if err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}
	box, err := a.AddSpace(ctx, "Box", "2024")
	if err != nil {
		t.Fatalf("AddSpace(under numeric name) error = %v", err)
	}
	if box.ParentID == nil || *box.ParentID != year.ID {
		t.Errorf("Box.ParentID = %v, want %d", box.ParentID, year.ID)
	}

	if _, err := a.AddSpace(ctx, "Bag", "#99"); !errors.Is(err, inventory.ErrNotFound) {
		t.Errorf("AddSpace(under #99) error = %v, want ErrNotFound", err)
	}
}

func TestBackup_EmptyDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	a := openTestApp(t, cfg)

	if _, err := a.Backup(ctx); !errors.Is(err, ErrNothingToBackUp) {
		t.Fatalf("Backup() of empty database error = %v, want ErrNothingToBackUp", err)
	}
	if _, err := Restore(ctx, cfg, testPassphrase, false, nil); !errors.Is(err, vault.ErrSnapshotNotFound) {
		t.Errorf("Restore() error = %v, want ErrSnapshotNotFound", err)
	}
}
