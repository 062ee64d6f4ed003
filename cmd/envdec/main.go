package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/envelope"
	"github.com/polusgg/plugin-polusgg-auth/internal/protocol/hazel"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("nothing to decode")
		fmt.Println("envdec [-s <client secret>] <byte as hex>...")
		os.Exit(1)
		return
	}

	args := os.Args[1:]
	secret := ""
	if args[0] == "-s" {
		if len(args) < 3 {
			fmt.Println("nothing to decode")
			os.Exit(1)
			return
		}
		secret, args = args[1], args[2:]
	}

	buf, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
		return
	}

	if hazel.IsAcknowledgement(buf) {
		nonce, _ := hazel.Nonce(buf)
		fmt.Printf("acknowledgement (not wrapped), nonce %d\n", nonce)
		return
	}

	e, err := envelope.Decode(buf)
	if err != nil {
		fmt.Println(err)
		os.Exit(3)
		return
	}

	fmt.Printf("client id: %s\n", e.ClientIDString())
	fmt.Printf("digest:    %x\n", e.Digest)
	fmt.Printf("payload:   %x\n", e.Payload)
	if typ, ok := hazel.TypeOf(e.Payload); ok {
		fmt.Printf("packet:    %s\n", typ)
	}

	if secret == "" {
		return
	}

	v, ok := auth.DefaultOffsets.Resolve(e.Payload, e.Digest[:], secret)
	if !ok {
		fmt.Println("digest does not verify with the given secret")
		os.Exit(4)
		return
	}
	fmt.Printf("verified:  %s\n", v)
}
