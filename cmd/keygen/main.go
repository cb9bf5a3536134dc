// Command keygen creates the access and refresh signing key pairs outside of
// server startup, for deployments where the key directory is provisioned
// ahead of time. With -p the private keys are encrypted at rest with a
// passphrase read from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/agrismart/auth/internal/logging"
	"github.com/agrismart/auth/internal/server/config"
	"github.com/agrismart/auth/internal/server/keystore"
)

func main() {

	dir := flag.String("d", "./keys", "key directory")
	backend := flag.String("b", config.KeyBackendEC, "key backend: ec or rsa")
	override := flag.Bool("o", false, "regenerate existing key pairs")
	encrypt := flag.Bool("p", false, "encrypt private keys with a passphrase")
	flag.Parse()

	var passphrase string
	if *encrypt {
		p, err := readPassphrase()
		if err != nil {
			log.Fatalf("passphrase error: %v", err)
		}
		passphrase = p
	}

	keys := keystore.New(keystore.Options{
		Directory:  *dir,
		Backend:    *backend,
		Override:   *override,
		Passphrase: passphrase,
	}, logging.NewJSON())

	if err := keys.Generate(context.Background()); err != nil {
		log.Fatalf("key generation error: %v", err)
	}
}

func readPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	p1, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Repeat passphrase: ")
	p2, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(p1) != string(p2) {
		return "", fmt.Errorf("passphrases do not match")
	}
	if len(p1) == 0 {
		return "", fmt.Errorf("empty passphrase")
	}
	return string(p1), nil
}
