package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/weft-io/weft/pkg/addr"
	"github.com/weft-io/weft/pkg/admin"
	"github.com/weft-io/weft/pkg/flags"
	"github.com/weft-io/weft/pkg/nametable"
)

func main() {
	cmd := flag.NewFlagSet("weftd", flag.ExitOnError)

	metricsAddr := cmd.String("metrics-addr", ":9990", "address to serve scrapable metrics on")
	node := cmd.Uint("node", 1, "numeric identity of this node in the cluster")
	maxPublications := cmd.Uint("max-publications", nametable.DefaultMaxLocalPublications,
		"ceiling on publications owned by this node")

	flags.ConfigureAndParse(cmd, os.Args[1:])

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	table := nametable.New(addr.NodeID(*node), uint32(*maxPublications), log.NewEntry(log.StandardLogger()))

	go admin.StartServer(*metricsAddr, func() bool { return !table.Stopped() })

	<-stop
	log.Info("shutting down weftd")
	table.Stop()
}
