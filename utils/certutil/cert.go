// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package certutil generates self-signed server certificates for local use and tests.
package certutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// SelfSignedCert specifies a self-signed certificate to be generated.
type SelfSignedCert struct {
	Hosts        []string
	Organization []string
	ValidFrom    time.Time
	ValidFor     time.Duration
	// RSABits selects an RSA key, zero selects ECDSA P-256.
	RSABits int
}

func ECDSASelfSignedCert(hosts ...string) *SelfSignedCert {
	if len(hosts) == 0 {
		hosts = []string{"localhost"}
	}
	return &SelfSignedCert{
		Hosts:        hosts,
		Organization: []string{"sealproxy"},
		ValidFrom:    time.Now(),
		ValidFor:     365 * 24 * time.Hour,
	}
}

func RSASelfSignedCert(hosts ...string) *SelfSignedCert {
	c := ECDSASelfSignedCert(hosts...)
	c.RSABits = 2048
	return c
}

// Gen generates the certificate, see https://golang.org/src/crypto/tls/generate_cert.go.
func (c *SelfSignedCert) Gen() (tls.Certificate, error) {
	var cert tls.Certificate

	var (
		priv any
		pub  any
		err  error
	)
	keyUsage := x509.KeyUsageDigitalSignature
	if c.RSABits > 0 {
		var k *rsa.PrivateKey
		k, err = rsa.GenerateKey(rand.Reader, c.RSABits)
		priv, pub = k, &k.PublicKey
		keyUsage |= x509.KeyUsageKeyEncipherment
	} else {
		var k *ecdsa.PrivateKey
		k, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		priv, pub = k, &k.PublicKey
	}
	if err != nil {
		return cert, fmt.Errorf("generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return cert, fmt.Errorf("generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: c.Organization,
		},
		NotBefore:             c.ValidFrom,
		NotAfter:              c.ValidFrom.Add(c.ValidFor),
		KeyUsage:              keyUsage,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, h := range c.Hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, pub, priv)
	if err != nil {
		return cert, fmt.Errorf("create certificate: %w", err)
	}
	cert.Certificate = [][]byte{der}
	cert.PrivateKey = priv
	cert.Leaf, err = x509.ParseCertificate(der)

	return cert, err
}

// EncodePEM returns the PEM encoded certificate chain and PKCS #8 private key.
func EncodePEM(cert tls.Certificate) (certPEM, keyPEM []byte, err error) {
	for _, der := range cert.Certificate {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	key, err := x509.MarshalPKCS8PrivateKey(cert.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: key})

	return certPEM, keyPEM, nil
}

// ErrExists is returned by WriteFiles if a file exists and overwrite is false.
var ErrExists = errors.New("file exists")

// WriteFiles writes the certificate and key in PEM format, the key is readable by the owner only.
func WriteFiles(cert tls.Certificate, certFile, keyFile string, overwrite bool) error {
	if !overwrite {
		for _, f := range []string{certFile, keyFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("%s: %w", f, ErrExists)
			}
		}
	}

	certPEM, keyPEM, err := EncodePEM(cert)
	if err != nil {
		return err
	}

	for _, f := range []string{certFile, keyFile} {
		if err := os.MkdirAll(filepath.Dir(f), 0o700); err != nil {
			return err
		}
	}
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil { //nolint:gosec // certificate is public
		return err
	}
	return os.WriteFile(keyFile, keyPEM, 0o600)
}
