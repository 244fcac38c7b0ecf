// Package tlsutil generates (or loads) the self-signed certificate this
// node presents both as a TLS server and as a TLS client. One keypair
// plays both roles, mirroring the original's symmetric trust model —
// there is no CA, every peer simply accepts the other's certificate.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
)

const certLifetime = 365 * 24 * time.Hour

// Material is a generated or loaded identity: certificate plus the
// private key that signed it, combined into the tls.Certificate form
// both tls.Config.Certificates and tls.Config.GetCertificate want.
type Material struct {
	Cert tls.Certificate
}

// GenerateSelfSigned creates a fresh ECDSA P-256 keypair and a
// self-signed certificate valid for localhost and 127.0.0.1, the only
// addresses this overlay dials in practice.
func GenerateSelfSigned() (*Material, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "generate ecdsa key")
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, errors.Wrap(err, "generate serial number")
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "p2pchat-node"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(certLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, errors.Wrap(err, "create certificate")
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}
	return &Material{Cert: cert}, nil
}

// LoadOrGenerate reads a cert/key pair from certPath/keyPath if both
// exist, otherwise generates a fresh identity and writes it there for
// reuse across restarts.
func LoadOrGenerate(certPath, keyPath string) (*Material, error) {
	if fileExists(certPath) && fileExists(keyPath) {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, errors.Wrap(err, "load existing tls material")
		}
		return &Material{Cert: cert}, nil
	}

	mat, err := GenerateSelfSigned()
	if err != nil {
		return nil, err
	}
	if err := mat.persist(certPath, keyPath); err != nil {
		return nil, err
	}
	return mat, nil
}

func (m *Material) persist(certPath, keyPath string) error {
	certOut, err := x509EncodeCert(m.Cert.Certificate[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(certPath, certOut, 0o644); err != nil {
		return errors.Wrap(err, "write cert file")
	}

	keyOut, err := x509EncodeKey(m.Cert.PrivateKey)
	if err != nil {
		return err
	}
	if err := os.WriteFile(keyPath, keyOut, 0o600); err != nil {
		return errors.Wrap(err, "write key file")
	}
	return nil
}

// ServerConfig builds a tls.Config suitable for tls.NewListener:
// presents mat's certificate, accepts any client certificate (there is
// no peer authentication in this overlay, only transport encryption).
func ServerConfig(mat *Material) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{mat.Cert},
		ClientAuth:   tls.NoClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

// ClientConfig builds a tls.Config for dialing a peer. InsecureSkipVerify
// is set here rather than pinning the remote certificate as a trust
// anchor the way tls_utils.rs's RootCertStore does: this overlay has no
// out-of-band channel to exchange certificates before the first
// connection, so there's nothing to pin against at dial time. This
// trades the original's per-peer pinning for encryption without peer
// authentication, same as ServerConfig's NoClientCert.
func ClientConfig(mat *Material) *tls.Config {
	return &tls.Config{
		Certificates:       []tls.Certificate{mat.Cert},
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS12,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func x509EncodeCert(der []byte) ([]byte, error) {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}

func x509EncodeKey(key any) ([]byte, error) {
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("unsupported private key type for persistence")
	}
	der, err := x509.MarshalECPrivateKey(ecKey)
	if err != nil {
		return nil, errors.Wrap(err, "marshal ec private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
