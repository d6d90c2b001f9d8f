// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// reopenGrace is how long the previous file stays open after Reopen,
// writers holding it finish their writes in that window.
const reopenGrace = 5 * time.Second

// RotatableFile is a log file that can be reopened in place, e.g. after logrotate moved it.
// SIGHUP triggers Reopen.
type RotatableFile struct {
	f    atomic.Pointer[os.File]
	sig  chan os.Signal
	done chan struct{}
	once sync.Once
}

func NewRotatableFile(f *os.File) *RotatableFile {
	w := &RotatableFile{
		sig:  make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	w.f.Store(f)

	signal.Notify(w.sig, syscall.SIGHUP)
	go w.reopenOnSignal()

	return w
}

func (w *RotatableFile) Name() string {
	return w.f.Load().Name()
}

func (w *RotatableFile) Write(p []byte) (int, error) {
	return w.f.Load().Write(p)
}

// Reopen opens the file path again and swaps it with the current file.
func (w *RotatableFile) Reopen() error {
	nf, err := os.OpenFile(w.Name(), DefaultFileFlags, DefaultFileMode)
	if err != nil {
		return err
	}
	old := w.f.Swap(nf)

	time.AfterFunc(reopenGrace, func() {
		if err := old.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close rotated log file: %v\n", err)
		}
	})

	return nil
}

func (w *RotatableFile) Close() error {
	w.once.Do(func() {
		signal.Stop(w.sig)
		close(w.done)
	})
	return w.f.Load().Close()
}

func (w *RotatableFile) reopenOnSignal() {
	for {
		select {
		case <-w.done:
			return
		case <-w.sig:
			if err := w.Reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "reopen log file: %v\n", err)
			}
		}
	}
}
