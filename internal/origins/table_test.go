package origins

import (
	"path/filepath"
	"testing"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/storage"
)

func newTestDB(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnectAndGet(t *testing.T) {
	tab, err := NewTable(newTestDB(t))
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	e := Entry{Origin: "https://dapp.example", ChainKind: model.ChainEVM, Accounts: []string{"0xabc"}}
	if err := tab.Connect("tab-1", e); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	got, ok := tab.Get("tab-1")
	if !ok || got.Origin != e.Origin {
		t.Errorf("Get returned (%+v, %v)", got, ok)
	}
}

func TestDisconnect(t *testing.T) {
	tab, _ := NewTable(newTestDB(t))
	tab.Connect("tab-1", Entry{Origin: "https://a.example", ChainKind: model.ChainEVM})

	if err := tab.Disconnect("tab-1"); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if _, ok := tab.Get("tab-1"); ok {
		t.Error("entry should be gone")
	}
	if err := tab.Disconnect("tab-1"); err != nil {
		t.Errorf("second Disconnect must be a no-op, got %v", err)
	}
}

func TestOriginsForChain(t *testing.T) {
	tab, _ := NewTable(newTestDB(t))
	tab.Connect("tab-1", Entry{Origin: "https://b.example", ChainKind: model.ChainEVM})
	tab.Connect("tab-2", Entry{Origin: "https://a.example", ChainKind: model.ChainEVM})
	tab.Connect("tab-3", Entry{Origin: "https://a.example", ChainKind: model.ChainEVM})
	tab.Connect("tab-4", Entry{Origin: "https://c.example", ChainKind: model.ChainLedger})

	got := tab.OriginsForChain(model.ChainEVM)
	want := []string{"https://a.example", "https://b.example"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestRehydratesAcrossRestart(t *testing.T) {
	db := newTestDB(t)

	tab1, _ := NewTable(db)
	tab1.Connect("tab-1", Entry{Origin: "https://a.example", ChainKind: model.ChainEVM})

	// A fresh table over the same storage sees the same state.
	tab2, err := NewTable(db)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	if _, ok := tab2.Get("tab-1"); !ok {
		t.Error("arena must rehydrate from durable storage")
	}
}

func TestTabsForOrigin(t *testing.T) {
	tab, _ := NewTable(newTestDB(t))
	tab.Connect("tab-2", Entry{Origin: "https://a.example", ChainKind: model.ChainEVM})
	tab.Connect("tab-1", Entry{Origin: "https://a.example", ChainKind: model.ChainLedger})
	tab.Connect("tab-3", Entry{Origin: "https://b.example", ChainKind: model.ChainEVM})

	got := tab.TabsForOrigin("https://a.example")
	if len(got) != 2 || got[0] != "tab-1" || got[1] != "tab-2" {
		t.Errorf("got %v", got)
	}
}
