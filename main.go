package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"chainode/api"
	"chainode/config"
	"chainode/database"
	"chainode/ledger"
	"chainode/log"
	"chainode/mqtt"
	"chainode/net"
	"chainode/node"
)

func main() {
	cfg := config.LoadConfig()

	log.Init(&cfg.Log)
	net.Init(&cfg.Webhook)

	db := database.New(&cfg.DB)

	ld := ledger.New(db)
	blocks, err := db.LoadChain()
	if err != nil {
		panic(err)
	}
	if err := ld.Load(blocks); err != nil {
		panic(err)
	}

	transport, err := mqtt.Connect(&cfg.MQTT)
	if err != nil {
		panic(err)
	}

	n := node.New(&cfg.Node, ld, transport)
	if err := n.Start(); err != nil {
		panic(err)
	}

	apiSrv := api.New(n, ld, &cfg.Server)
	apiSrv.Start()

	c := cron.New(cron.WithSeconds())
	_, _ = c.AddFunc("0 0 */1 * * *", func() {
		if err := ld.Verify(); err != nil {
			zap.S().Errorf("Chain audit error: [%s]", err.Error())
		}
	})
	_, _ = c.AddFunc("0 */10 * * * *", func() {
		n.Report()
		ld.Report()
	})
	c.Start()

	watchOSSignal(n, apiSrv, transport, db)
}

func watchOSSignal(n *node.Node, apiSrv *api.Server, transport *mqtt.Client, db *database.ChainDB) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	n.Stop()
	apiSrv.Stop()
	transport.Close()
	db.Close()
}
