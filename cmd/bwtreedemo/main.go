package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"bwtree/config"
	"bwtree/pkg/bwtree"
	"bwtree/pkg/ordered"
	"bwtree/util/logger"
)

func main() {
	cfg := config.New()

	tree := bwtree.New(&bwtree.Options[int, string]{
		KeyLess:             ordered.Less[int](),
		KeyEqual:            ordered.Equal[int](),
		ValueEqual:          ordered.Equal[string](),
		Unique:              false,
		NodeBytes:           cfg.TreeConfig.NodeBytes,
		MaxChainLen:         cfg.TreeConfig.MaxChainLen,
		MappingTierBits:     cfg.TreeConfig.MappingTierBits,
		ConsolidateInterval: 0,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	done := make(chan struct{})
	go repl(tree, done)

	select {
	case <-done:
	case q := <-quit:
		fmt.Printf("\n%s signal received, stopping gracefully...\n", q.String())
	}

	if err := tree.Close(); err != nil {
		logger.L.WithError(err).Warn("error on close")
	}
}

func repl(tree *bwtree.Tree[int, string], done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("bwtreedemo - commands: insert <k> <v> | delete <k> <v> | get <k> | scan | height | leaves | chain <pid> | quit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "insert":
			if len(fields) != 3 {
				fmt.Println("usage: insert <k> <v>")
				continue
			}
			k, err := strconv.Atoi(fields[1])
			if err != nil {
				fatal(err)
				continue
			}
			ok := tree.Insert(k, fields[2])
			fmt.Println("inserted:", ok)

		case "delete":
			if len(fields) != 3 {
				fmt.Println("usage: delete <k> <v>")
				continue
			}
			k, err := strconv.Atoi(fields[1])
			if err != nil {
				fatal(err)
				continue
			}
			ok := tree.Delete(k, fields[2])
			fmt.Println("deleted:", ok)

		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <k>")
				continue
			}
			k, err := strconv.Atoi(fields[1])
			if err != nil {
				fatal(err)
				continue
			}
			fmt.Println(tree.Lookup(k))

		case "scan":
			for _, e := range tree.ScanAll() {
				fmt.Printf("%v -> %v\n", e.Key, e.Value)
			}

		case "height":
			fmt.Println(tree.Height())

		case "leaves":
			fmt.Println(tree.LeafCount())

		case "chain":
			if len(fields) != 2 {
				fmt.Println("usage: chain <pid>")
				continue
			}
			pid, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				fatal(err)
				continue
			}
			fmt.Println(tree.DebugChain(bwtree.PID(pid)))

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func fatal(val interface{}) {
	fmt.Println(val)
}
