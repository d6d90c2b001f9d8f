// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tlsutil loads the server key pair and reloads it when the files change.
package tlsutil

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zrb-bund/sealproxy/log"
)

// DefaultDebounce is the time to wait for more file events before reloading.
// Certificate renewal usually writes both files in quick succession.
const DefaultDebounce = 200 * time.Millisecond

// CertReloader serves a key pair through tls.Config.GetCertificate.
type CertReloader struct {
	certFile string
	keyFile  string
	log      log.StructuredLogger
	cert     atomic.Pointer[tls.Certificate]

	// Debounce is the quiet period before reloading, defaults to DefaultDebounce.
	Debounce time.Duration
	// OnReload, if set, is called after every reload attempt.
	OnReload func(err error)
}

// NewCertReloader loads the key pair, it fails if the files cannot be loaded.
func NewCertReloader(certFile, keyFile string, l log.StructuredLogger) (*CertReloader, error) {
	if l == nil {
		l = log.NopLogger
	}
	r := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		log:      l,
		Debounce: DefaultDebounce,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload loads the key pair from disk. On error the previous pair is kept.
func (r *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load TLS key pair cert=%s key=%s: %w", r.certFile, r.keyFile, err)
	}
	r.cert.Store(&cert)
	return nil
}

// Certificate returns the current key pair.
func (r *CertReloader) Certificate() *tls.Certificate {
	return r.cert.Load()
}

func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return r.cert.Load(), nil
}

// Watch reloads the key pair when the certificate or key file changes.
// The parent directories are watched so that atomic renames and symlink swaps are detected.
// It blocks until ctx is done.
func (r *CertReloader) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close()

	files := map[string]struct{}{
		filepath.Clean(r.certFile): {},
		filepath.Clean(r.keyFile):  {},
	}
	dirs := map[string]struct{}{}
	for f := range files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	r.log.Info("watching TLS key pair", "cert_file", r.certFile, "key_file", r.keyFile)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, ok := files[filepath.Clean(ev.Name)]; !ok {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			r.log.Debug("TLS file event", "path", ev.Name, "op", ev.Op.String())

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(r.Debounce, r.reloadAndReport)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Error("TLS file watcher error", "error", err)
		}
	}
}

func (r *CertReloader) reloadAndReport() {
	err := r.Reload()
	if err != nil {
		r.log.Error("failed to reload TLS key pair, keeping the previous one", "error", err)
	} else {
		r.log.Info("reloaded TLS key pair")
	}
	if r.OnReload != nil {
		r.OnReload(err)
	}
}
