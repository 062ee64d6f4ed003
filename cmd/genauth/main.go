package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/polusgg/plugin-polusgg-auth/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: genauth <display name>")
		os.Exit(1)
		return
	}

	name := strings.Join(os.Args[1:], " ")

	u, err := auth.GenerateUser(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(3)
		return
	}

	fmt.Printf("give to the player:\nclient id:     %s\nclient secret: %s\n", u.ClientID, u.Secret)
	fmt.Println("add to server's users.json:")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "\t")
	err = enc.Encode(u)
	if err != nil {
		fmt.Println(err)
		os.Exit(4)
		return
	}
}
