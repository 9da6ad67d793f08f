package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenDisk(t *testing.T) {
	root := t.TempDir()
	st, err := Open("", filepath.Join(root, "Original"), "John_Smith", S3Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	want := filepath.Join(root, "Original", "John_Smith")
	if st.Root() != want {
		t.Errorf("Root() = %q, want %q", st.Root(), want)
	}
	if info, err := os.Stat(want); err != nil || !info.IsDir() {
		t.Fatalf("person folder was not created: %v", err)
	}

	loc, err := st.Save(context.Background(), "000001.jpg", []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "jpeg" {
		t.Errorf("unexpected file content %q (%v)", data, err)
	}

	// Same name again overwrites.
	st.Save(context.Background(), "000001.jpg", []byte("second"), "image/jpeg")
	data, _ = os.ReadFile(loc)
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestDiskSaveCancelled(t *testing.T) {
	st, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.Save(ctx, "x.jpg", nil, ""); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestOpenRejectsBadTargets(t *testing.T) {
	for _, target := range []string{"ftp://host/dir", "s3://", "gcs://bucket"} {
		if _, err := Open(target, t.TempDir(), "p", S3Options{}); err == nil {
			t.Errorf("Open(%q) should fail", target)
		}
	}
}

func TestOpenS3Key(t *testing.T) {
	st, err := Open("s3://datasets/faces/raw/", "Original", "Ada_Lovelace", S3Options{Region: "us-east-1"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s3st, ok := st.(*S3Storage)
	if !ok {
		t.Fatalf("expected *S3Storage, got %T", st)
	}
	if s3st.Bucket != "datasets" || s3st.key("000001.png") != "faces/raw/Ada_Lovelace/000001.png" {
		t.Errorf("unexpected bucket/key: %s %s", s3st.Bucket, s3st.key("000001.png"))
	}
}
