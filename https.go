package atomichttp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// TLS makes the server accept from the given listener constructor instead
// of a plain TCP one.
func (s *Server) TLS(constructor ListenerConstructor) *Server {
	s.listen = constructor
	return s
}

// HTTPS terminates TLS with the given certificate and key files.
func (s *Server) HTTPS(cert, key string) *Server {
	return s.TLS(tlsListener(cert, key))
}

// AutoHTTPS obtains certificates via ACME for the given domains. Called
// with no domains it falls back to a cached self-signed certificate, which
// is only good for local development.
func (s *Server) AutoHTTPS(domains ...string) *Server {
	if len(domains) == 0 {
		cert, key, err := selfSignedCert()
		if err != nil {
			log.Printf("WARNING: AutoHTTPS: can't generate a self-signed certificate: %s. Staying on plain TCP", err)
			return s
		}

		return s.HTTPS(cert, key)
	}

	return s.TLS(autoTLSListener(domains...))
}

func tlsListener(cert, key string) ListenerConstructor {
	return func(network, addr string) (net.Listener, error) {
		certificate, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return nil, err
		}

		return tls.Listen(network, addr, &tls.Config{
			Certificates: []tls.Certificate{certificate},
		})
	}
}

func autoTLSListener(domains ...string) ListenerConstructor {
	return func(network, addr string) (net.Listener, error) {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(domains...),
		}

		cache := cacheDir()
		if err := mkdirIfNotExists(cache); err != nil {
			log.Printf("WARNING: auto HTTPS: not using a certificate cache: %s", err)
		} else {
			m.Cache = autocert.DirCache(cache)
		}

		return tls.Listen(network, addr, &tls.Config{
			GetCertificate: m.GetCertificate,
		})
	}
}

// selfSignedCert writes (or finds cached) a long-lived localhost
// certificate and returns the file paths.
func selfSignedCert() (cert, key string, err error) {
	var (
		cache        = cacheDir()
		certFilename = filepath.Join(cache, "localhost.crt")
		keyFilename  = filepath.Join(cache, "localhost.key")
	)

	if fileExists(certFilename) && fileExists(keyFilename) {
		return certFilename, keyFilename, nil
	}

	if err = mkdirIfNotExists(cache); err != nil {
		return "", "", err
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"Localhost"}},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return "", "", err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", err
	}

	if err = writePEM(certFilename, "CERTIFICATE", certDER); err != nil {
		return "", "", err
	}
	if err = writePEM(keyFilename, "PRIVATE KEY", privDER); err != nil {
		return "", "", err
	}

	return certFilename, keyFilename, nil
}

func writePEM(filename, blockType string, der []byte) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return pem.Encode(file, &pem.Block{Type: blockType, Bytes: der})
}

func cacheDir() string {
	const base = "atomic-http-certs"

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches", base)
	case "windows":
		for _, ev := range []string{"APPDATA", "TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return filepath.Join(v, base)
			}
		}
		return filepath.Join(homeDir(), base)
	}

	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, base)
	}

	return filepath.Join(homeDir(), ".cache", base)
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return "/"
}

func mkdirIfNotExists(dir string) error {
	if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
		return nil
	}

	return os.MkdirAll(dir, 0700)
}

func fileExists(filename string) bool {
	stat, err := os.Stat(filename)

	return err == nil && !stat.IsDir()
}
