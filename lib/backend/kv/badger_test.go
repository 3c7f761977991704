package kv

import (
	"bytes"
	"testing"

	"github.com/Pollum-io/sysweb3/lib/types/store"
)

func TestBadgerStore(t *testing.T) {
	d, err := NewBadgerStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	testKey := []byte("vault")
	testVal := []byte("aaaaa")

	val, err := d.Get(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if val != nil {
		t.Fatal("missing key should read as nil")
	}

	err = d.Put(testKey, testVal)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := d.Has(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("not have")
	}

	val, err = d.Get(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(val, testVal) {
		t.Fatal("not equal")
	}

	err = d.Delete(testKey)
	if err != nil {
		t.Fatal(err)
	}

	ok, err = d.Has(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("still have")
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if err := d.Put(testKey, testVal); err != store.ErrClosed {
		t.Fatal("put after close:", err)
	}
}

func TestBadgerBackupRestore(t *testing.T) {
	src, err := NewBadgerStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if err := src.Put([]byte("vault"), []byte("blob")); err != nil {
		t.Fatal(err)
	}
	if err := src.Put([]byte("keyring"), []byte("snapshot")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := src.Backup(&buf); err != nil {
		t.Fatal(err)
	}

	dst, err := NewBadgerStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dst.Close()

	if err := dst.Restore(&buf); err != nil {
		t.Fatal(err)
	}

	val, err := dst.Get([]byte("keyring"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(val, []byte("snapshot")) {
		t.Fatal("restored value differs")
	}
}
