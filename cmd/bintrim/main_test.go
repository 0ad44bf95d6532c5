/*
DESCRIPTION
  main_test.go provides testing of bintrim.

AUTHORS
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/hydrophone/protocol/frame"
	"github.com/ausocean/hydrophone/protocol/tick"
)

// 2024-09-09T16:13:57Z, a whole number of ticks.
const base = 1725898437

func TestNewWindow(t *testing.T) {
	tests := []struct {
		start, stop string
		duration    float64
		want        window
		err         error
	}{
		{
			start: "20240909T161357Z",
			want:  window{start: base * 1e6, hasStart: true},
		},
		{
			start: "20240909T161357Z", duration: 2.5,
			want: window{start: base * 1e6, stop: base*1e6 + 2500000, hasStart: true, hasStop: true},
		},
		{
			stop: "1725898440000000", duration: 1,
			want: window{start: 1725898439000000, stop: 1725898440000000, hasStart: true, hasStop: true},
		},
		{start: "1", stop: "2", duration: 1, err: errOverspecified},
		{duration: 1, err: errNoAnchor},
	}
	for _, test := range tests {
		got, err := newWindow(test.start, test.stop, test.duration)
		if !errors.Is(err, test.err) {
			t.Errorf("newWindow(%q, %q, %v): got error %v, want %v", test.start, test.stop, test.duration, err, test.err)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("newWindow(%q, %q, %v): got %+v, want %+v", test.start, test.stop, test.duration, got, test.want)
		}
	}

	_, err := newWindow("yesterday", "", 0)
	if err == nil {
		t.Error("expected error for unparseable time")
	}
}

func TestTrim(t *testing.T) {
	// One frame per second.
	var in bytes.Buffer
	for i := 0; i < 10; i++ {
		err := frame.Write(&in, tick.FromSeconds(base+float64(i)), []byte(fmt.Sprintf("frame %d", i)))
		if err != nil {
			t.Fatal(err)
		}
	}

	win := window{start: (base + 3) * 1e6, stop: (base + 6) * 1e6, hasStart: true, hasStop: true}
	var out bytes.Buffer
	n, err := trim(bytes.NewReader(in.Bytes()), &out, win)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("got %d frames, want 4", n)
	}

	var got []string
	fr := frame.NewReader(&out)
	for {
		_, p, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, string(p))
	}
	want := []string{"frame 3", "frame 4", "frame 5", "frame 6"}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected frames\n%s", cmp.Diff(want, got))
	}

	// No bounds copies everything.
	out.Reset()
	n, err = trim(bytes.NewReader(in.Bytes()), &out, window{})
	if err != nil || n != 10 || !bytes.Equal(out.Bytes(), in.Bytes()) {
		t.Errorf("unbounded trim: got %d frames, %v", n, err)
	}
}
