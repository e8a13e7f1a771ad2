// Package main generates a development CA and a server certificate signed
// by it, for serving the remote store over HTTPS. Pass the CA to the client
// with -ca and the server pair to the server with -tls-cert and -tls-key.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/CoupleHQ/internal/certgen"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma separated server host names and IPs")
	reuse := fs.Bool("reuse-ca", false, "sign with the existing ca.crt/ca.key in -dir")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		ca  *certgen.Authority
		err error
	)
	files := map[string][]byte{}
	if *reuse {
		ca, err = certgen.LoadAuthority(filepath.Join(*dir, "ca.crt"), filepath.Join(*dir, "ca.key"))
	} else {
		ca, err = certgen.NewAuthority("CoupleHQ Dev CA")
		if err == nil {
			files["ca.crt"] = ca.CertPEM()
			files["ca.key"], err = ca.KeyPEM()
		}
	}
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := ca.ServerCertificate(strings.Split(*hosts, ",")...)
	if err != nil {
		return err
	}
	files["server.crt"] = certPEM
	files["server.key"] = keyPEM

	if err := certgen.WriteFiles(*dir, files); err != nil {
		return err
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
	return nil
}
