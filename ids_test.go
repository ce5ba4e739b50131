package framegraph

import "testing"

func TestHandleEncoding(t *testing.T) {
	tests := []struct {
		gen   uint32
		index int
	}{
		{1, 0},
		{1, 41},
		{7, 0},
		{1<<32 - 1, 1<<31 - 2},
	}
	for _, tt := range tests {
		h := makeHandle(tt.gen, tt.index)
		if h == InvalidID {
			t.Errorf("makeHandle(%d, %d) is the invalid handle", tt.gen, tt.index)
		}
		gen, idx := splitHandle(h)
		if gen != tt.gen || idx != tt.index {
			t.Errorf("splitHandle(makeHandle(%d, %d)) = %d, %d", tt.gen, tt.index, gen, idx)
		}
	}
}

func TestHandleString(t *testing.T) {
	if got := ResourceID(makeHandle(3, 4)).String(); got != "res(5@3)" {
		t.Errorf("ResourceID string = %q", got)
	}
	if got := ViewID(InvalidID).String(); got != "view(invalid)" {
		t.Errorf("invalid ViewID string = %q", got)
	}
	if got := PassID(makeHandle(1, 0)).String(); got != "pass(1@1)" {
		t.Errorf("PassID string = %q", got)
	}
}

func TestHandleGenerationCheck(t *testing.T) {
	g := New(nil)
	g.resources = append(g.resources, resource{kind: KindImage})
	id := g.resourceID(0)

	if got := g.resourceIndex(id); got != 0 {
		t.Fatalf("resourceIndex = %d, want 0", got)
	}

	g.gen++
	defer func() {
		if _, ok := recover().(*ContractError); !ok {
			t.Error("stale handle did not raise a contract violation")
		}
	}()
	g.resourceIndex(id)
}
