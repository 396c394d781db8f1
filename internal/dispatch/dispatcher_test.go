package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"qrganizer/internal/database"
	"qrganizer/internal/dispatch"
	"qrganizer/internal/interpreter"
	"qrganizer/internal/inventory"
	"qrganizer/internal/model"
	"qrganizer/internal/resolver"
	"qrganizer/internal/testutil"
)

type fixture struct {
	db   *database.SQLiteDatabase
	stub *interpreter.Stub
	d    *dispatch.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDatabase(t)
	stub := interpreter.NewStub(nil)
	return &fixture{
		db:   db,
		stub: stub,
		d:    dispatch.New(db, resolver.New(resolver.DefaultThreshold, nil), stub, nil),
	}
}

func (f *fixture) space(t *testing.T, name string, parent *model.Space) *model.Space {
	t.Helper()
	var parentID *int64
	if parent != nil {
		parentID = &parent.ID
	}
	sp, err := f.db.CreateSpace(context.Background(), name, parentID)
	if err != nil {
		t.Fatalf("CreateSpace(%q) error = %v", name, err)
	}
	return sp
}

func (f *fixture) item(t *testing.T, name string, space *model.Space) *model.Item {
	t.Helper()
	var spaceID *int64
	if space != nil {
		spaceID = &space.ID
	}
	it, err := f.db.CreateItem(context.Background(), name, nil, spaceID)
	if err != nil {
		t.Fatalf("CreateItem(%q) error = %v", name, err)
	}
	return it
}

func (f *fixture) dispatch(t *testing.T, in interpreter.Intent) *dispatch.Outcome {
	t.Helper()
	out, err := f.d.Dispatch(context.Background(), in)
	if err != nil {
		t.Fatalf("Dispatch(%+v) error = %v", in, err)
	}
	if out.Message == "" {
		t.Fatalf("Dispatch(%+v) returned an empty message", in)
	}
	return out
}

func (f *fixture) tree(t *testing.T) []*model.SpaceNode {
	t.Helper()
	tree, err := f.db.GetSubtree(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSubtree() error = %v", err)
	}
	return tree
}

func TestDispatch_MoveItem_GarageShelfScenario(t *testing.T) {
	f := newFixture(t)
	garage := f.space(t, "Garage", nil)
	shelf := f.space(t, "Shelf", garage)
	if shelf.Depth != 1 {
		t.Fatalf("Shelf.Depth = %d, want 1", shelf.Depth)
	}
	hammer := f.item(t, "Hammer", shelf)

	out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionMoveItem, ItemName: "Hammer", SpaceName: "Garage"})

	if out.Message != "Moved 'Hammer' to 'Garage'" {
		t.Errorf("Message = %q, want %q", out.Message, "Moved 'Hammer' to 'Garage'")
	}
	if out.Status != dispatch.StatusOK {
		t.Errorf("Status = %q, want ok", out.Status)
	}

	got, err := f.db.GetItem(context.Background(), hammer.ID)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got.SpaceID == nil || *got.SpaceID != garage.ID {
		t.Errorf("Hammer.SpaceID = %v, want %d", got.SpaceID, garage.ID)
	}
}

func TestDispatch_DeleteSpace_AmbiguousBins(t *testing.T) {
	f := newFixture(t)
	bin1 := f.space(t, "Bin", nil)
	bin2 := f.space(t, "Bin", nil)
	f.item(t, "Screws", bin1)

	out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionDeleteSpace, SpaceName: "Bin"})

	if out.Status != dispatch.StatusRejected {
		t.Errorf("Status = %q, want rejected", out.Status)
	}
	want := fmt.Sprintf("Multiple spaces named 'Bin'. Please specify which one: ID:%d(Bin), ID:%d(Bin)", bin1.ID, bin2.ID)
	if out.Message != want {
		t.Errorf("Message = %q, want %q", out.Message, want)
	}

	spaces, _ := f.db.ListSpaces(context.Background())
	items, _ := f.db.ListItems(context.Background())
	if len(spaces) != 2 || len(items) != 1 {
		t.Errorf("after ambiguous delete: %d spaces %d items, want 2 and 1", len(spaces), len(items))
	}
}

func TestDispatch_MoveSpace_CycleLeavesTreeUnchanged(t *testing.T) {
	f := newFixture(t)
	garage := f.space(t, "Garage", nil)
	shelf := f.space(t, "Shelf", garage)
	f.item(t, "Hammer", shelf)
	before := f.tree(t)

	out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionMoveSpace, SpaceName: "Garage", ExtraDetails: "Shelf"})

	if out.Status != dispatch.StatusRejected {
		t.Errorf("Status = %q, want rejected", out.Status)
	}
	if out.Message != "Cannot move space 'Garage' under 'Shelf': 'Shelf' is inside 'Garage'." {
		t.Errorf("Message = %q", out.Message)
	}
	if diff := cmp.Diff(before, f.tree(t)); diff != "" {
		t.Errorf("tree changed (-before +after):\n%s", diff)
	}

	out = f.dispatch(t, interpreter.Intent{Action: interpreter.ActionMoveSpace, SpaceName: "Garage", ExtraDetails: "garage"})
	if out.Message != "Cannot move space 'Garage' under itself." {
		t.Errorf("self move Message = %q", out.Message)
	}
}

// noAccessDB panics on any use, proving a code path never touches storage.
type noAccessDB struct{ inventory.Database }

func TestDispatch_Unknown_NoStoreAccess(t *testing.T) {
	d := dispatch.New(noAccessDB{}, nil, nil, nil)

	for _, in := range []interpreter.Intent{
		{Action: interpreter.ActionUnknown, ExtraDetails: "blorp"},
		{},
	} {
		out, err := d.Dispatch(context.Background(), in)
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if out.Message != dispatch.MessageUnknown {
			t.Errorf("Message = %q, want %q", out.Message, dispatch.MessageUnknown)
		}
		if out.Action != interpreter.ActionUnknown {
			t.Errorf("Action = %q, want unknown", out.Action)
		}
	}
}

func TestDispatch_UnsupportedAndMissing_NoStoreAccess(t *testing.T) {
	d := dispatch.New(noAccessDB{}, nil, nil, nil)

	tests := []struct {
		in   interpreter.Intent
		want string
	}{
		{
			in:   interpreter.Intent{Action: "paint_item", ItemName: "fence"},
			want: dispatch.MessageUnknown,
		},
		{
			in:   interpreter.Intent{Action: interpreter.ActionMoveItem, ItemName: "hammer"},
			want: "Space name is required to move an item.",
		},
		{
			in:   interpreter.Intent{Action: interpreter.ActionMoveItem},
			want: "Item name and space name are required to move an item.",
		},
		{
			in:   interpreter.Intent{Action: interpreter.ActionCreateNestedSpace, SpaceName: "Top"},
			want: "Parent space name is required to create a nested space.",
		},
		{
			in:   interpreter.Intent{Action: interpreter.ActionMoveSpace, SpaceName: "Shelf"},
			want: "New parent space name is required to move a space.",
		},
		{
			in:   interpreter.Intent{Action: interpreter.ActionFindItem, ItemName: "   "},
			want: "Item name is required to find an item.",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.in.Action), func(t *testing.T) {
			out, err := d.Dispatch(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if out.Status != dispatch.StatusRejected {
				t.Errorf("Status = %q, want rejected", out.Status)
			}
			if out.Message != tt.want {
				t.Errorf("Message = %q, want %q", out.Message, tt.want)
			}
		})
	}
}

func TestDispatch_Actions(t *testing.T) {
	ctx := context.Background()

	t.Run("create item capitalizes and places", func(t *testing.T) {
		f := newFixture(t)
		f.space(t, "Bedroom Shelf", nil)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionCreateItem, ItemName: "laptop charger", SpaceName: "bedroom shelf"})
		if out.Message != "Item 'Laptop charger' created, in 'Bedroom Shelf'" {
			t.Errorf("Message = %q", out.Message)
		}

		out = f.dispatch(t, interpreter.Intent{Action: interpreter.ActionCreateItem, ItemName: "umbrella"})
		if out.Message != "Item 'Umbrella' created" {
			t.Errorf("Message = %q", out.Message)
		}

		items, _ := f.db.ListItems(ctx)
		if len(items) != 2 || items[1].SpaceID != nil {
			t.Errorf("items = %+v, want two with Umbrella unplaced", items)
		}
	})

	t.Run("create item in unknown space is rejected", func(t *testing.T) {
		f := newFixture(t)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionCreateItem, ItemName: "hammer", SpaceName: "moon"})
		if out.Message != "No space found named 'moon'." {
			t.Errorf("Message = %q", out.Message)
		}
		items, _ := f.db.ListItems(ctx)
		if len(items) != 0 {
			t.Errorf("len(items) = %d, want 0", len(items))
		}
	})

	t.Run("create space and nested space", func(t *testing.T) {
		f := newFixture(t)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionCreateSpace, SpaceName: "attic"})
		if out.Message != "Space 'Attic' created" {
			t.Errorf("Message = %q", out.Message)
		}

		out = f.dispatch(t, interpreter.Intent{Action: interpreter.ActionCreateNestedSpace, SpaceName: "top shelf", ExtraDetails: "Attic"})
		if out.Message != "Space 'Top shelf' created under 'Attic'" {
			t.Errorf("Message = %q", out.Message)
		}

		tree := f.tree(t)
		if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].Depth != 1 {
			t.Errorf("tree = %+v, want Attic > Top shelf", tree)
		}
	})

	t.Run("find item reports path", func(t *testing.T) {
		f := newFixture(t)
		garage := f.space(t, "Garage", nil)
		shelf := f.space(t, "Shelf", garage)
		f.item(t, "Hammer", shelf)
		f.item(t, "Rake", garage)
		f.item(t, "Umbrella", nil)

		tests := map[string]string{
			"hammer":   "'Hammer' is in 'Shelf' (Garage > Shelf)",
			"rake":     "'Rake' is in 'Garage'",
			"umbrella": "'Umbrella' is not in any space",
		}
		for name, want := range tests {
			out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionFindItem, ItemName: name})
			if out.Message != want {
				t.Errorf("find %s Message = %q, want %q", name, out.Message, want)
			}
		}
	})

	t.Run("delete item", func(t *testing.T) {
		f := newFixture(t)
		f.item(t, "Broken toy", nil)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionDeleteItem, ItemName: "broken toy"})
		if out.Message != "Item 'Broken toy' deleted" {
			t.Errorf("Message = %q", out.Message)
		}
		items, _ := f.db.ListItems(ctx)
		if len(items) != 0 {
			t.Errorf("len(items) = %d, want 0", len(items))
		}
	})

	t.Run("delete space reports cascade", func(t *testing.T) {
		f := newFixture(t)
		garage := f.space(t, "Garage", nil)
		shelf := f.space(t, "Shelf", garage)
		f.item(t, "Hammer", shelf)
		f.item(t, "Rake", garage)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionDeleteSpace, SpaceName: "garage"})
		if out.Message != "Space 'Garage' deleted along with 1 nested space and 2 items" {
			t.Errorf("Message = %q", out.Message)
		}

		f.space(t, "Attic", nil)
		out = f.dispatch(t, interpreter.Intent{Action: interpreter.ActionDeleteSpace, SpaceName: "attic"})
		if out.Message != "Space 'Attic' deleted" {
			t.Errorf("Message = %q", out.Message)
		}
	})

	t.Run("move space recomputes depth", func(t *testing.T) {
		f := newFixture(t)
		f.space(t, "Basement", nil)
		garage := f.space(t, "Garage", nil)
		shelf := f.space(t, "Shelf", garage)
		bin := f.space(t, "Bin", shelf)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionMoveSpace, SpaceName: "Shelf", ExtraDetails: "Basement"})
		if out.Message != "Moved space 'Shelf' under 'Basement'" {
			t.Errorf("Message = %q", out.Message)
		}
		got, _ := f.db.GetSpace(ctx, bin.ID)
		if got.Depth != 2 {
			t.Errorf("Bin.Depth = %d, want 2", got.Depth)
		}
	})

	t.Run("fuzzy matches are surfaced", func(t *testing.T) {
		f := newFixture(t)
		f.space(t, "Garage", nil)
		f.item(t, "Hammer", nil)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionMoveItem, ItemName: "hamer", SpaceName: "Garage"})
		want := "Moved 'Hammer' to 'Garage' (assumed 'Hammer' for 'hamer')"
		if out.Message != want {
			t.Errorf("Message = %q, want %q", out.Message, want)
		}
	})

	t.Run("unresolvable second name leaves first untouched", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.space(t, "Shelf", nil)
		hammer := f.item(t, "Hammer", shelf)

		out := f.dispatch(t, interpreter.Intent{Action: interpreter.ActionMoveItem, ItemName: "Hammer", SpaceName: "Volcano"})
		if out.Message != "No space found named 'Volcano'." {
			t.Errorf("Message = %q", out.Message)
		}
		got, _ := f.db.GetItem(ctx, hammer.ID)
		if got.SpaceID == nil || *got.SpaceID != shelf.ID {
			t.Errorf("Hammer.SpaceID = %v, want %d", got.SpaceID, shelf.ID)
		}
	})
}

// failingDB fails every transaction.
type failingDB struct {
	inventory.Database
	err error
}

func (f failingDB) Update(ctx context.Context, fn func(h inventory.Hierarchy) error) error {
	return f.err
}

func TestDispatch_StorageFailureIsReturned(t *testing.T) {
	boom := errors.New("disk I/O error")
	d := dispatch.New(failingDB{err: boom}, nil, nil, nil)

	_, err := d.Dispatch(context.Background(), interpreter.Intent{Action: interpreter.ActionCreateSpace, SpaceName: "Attic"})
	if !errors.Is(err, boom) {
		t.Errorf("Dispatch() error = %v, want wrapping %v", err, boom)
	}
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("records interpreted commands", func(t *testing.T) {
		f := newFixture(t)
		f.stub.Set("create a space called garage", interpreter.Intent{Action: interpreter.ActionCreateSpace, SpaceName: "garage"})

		out, err := f.d.Handle(ctx, "create a space called garage")
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if out.Message != "Space 'Garage' created" {
			t.Errorf("Message = %q", out.Message)
		}

		out, err = f.d.Handle(ctx, "flibber jabber")
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if out.Message != dispatch.MessageUnknown {
			t.Errorf("Message = %q, want %q", out.Message, dispatch.MessageUnknown)
		}

		hist, err := f.d.History(ctx, 10)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(hist) != 2 {
			t.Fatalf("len(History()) = %d, want 2", len(hist))
		}
		if hist[0].Text != "flibber jabber" || hist[0].Status != "rejected" || hist[0].Action != "unknown" {
			t.Errorf("newest record = %+v", hist[0])
		}
		if hist[1].Intent != `{"action":"create_space","space_name":"garage"}` || hist[1].Status != "ok" {
			t.Errorf("oldest record = %+v", hist[1])
		}
	})

	t.Run("interpreter timeout becomes failed outcome", func(t *testing.T) {
		db := testutil.NewTestDatabase(t)
		block := make(chan struct{})
		defer close(block)
		slow := interpreter.WithTimeout(interpreter.Func(func(ctx context.Context, text string) (interpreter.Intent, error) {
			<-block
			return interpreter.Intent{}, nil
		}), 10*time.Millisecond, nil)
		d := dispatch.New(db, nil, slow, nil)

		out, err := d.Handle(ctx, "move the hammer")
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if out.Status != dispatch.StatusFailed {
			t.Errorf("Status = %q, want failed", out.Status)
		}

		hist, _ := d.History(ctx, 10)
		if len(hist) != 1 || hist[0].Status != "failed" {
			t.Errorf("history = %+v, want one failed record", hist)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.d.Handle(ctx, "   ")
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if out.Status != dispatch.StatusRejected {
			t.Errorf("Status = %q, want rejected", out.Status)
		}
		if n := len(f.stub.Calls()); n != 0 {
			t.Errorf("interpreter called %d times, want 0", n)
		}
	})
}
