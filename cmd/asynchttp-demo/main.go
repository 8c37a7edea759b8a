/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command asynchttp-demo wires the scheduler, the default connection
// provider and (optionally) a line-protocol mail transaction against a
// real target, to exercise the whole module end to end from the command
// line. It takes flags directly rather than a subcommand framework, in
// keeping with this module's small surface.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github/sabouaram/asynchttp/asynclog"
	"github/sabouaram/asynchttp/asynclog/level"
	"github/sabouaram/asynchttp/comm"
	"github/sabouaram/asynchttp/config"
	"github/sabouaram/asynchttp/httpclient"
	"github/sabouaram/asynchttp/lineproto"
	"github/sabouaram/asynchttp/lineproto/smtp"
	"github/sabouaram/asynchttp/metrics"
	"github/sabouaram/asynchttp/netprovider"
)

func main() {
	var (
		host       = flag.String("host", "example.com", "target host")
		port       = flag.String("port", "80", "target port")
		path       = flag.String("path", "/", "request path")
		configFile = flag.String("config", "", "path to a JSON/YAML configuration file (optional)")
		smtpTo     = flag.String("smtp-to", "", "if set, also run a mail transaction to this recipient after the HTTP request")
	)
	flag.Parse()

	log := asynclog.New(nil)
	log.SetLevel(level.DebugLevel)

	opt := config.DefaultOptions()
	if *configFile != "" {
		loader := config.NewLoader(*configFile)
		loaded, err := loader.Load()
		if err != nil {
			log.Errorf("failed to load configuration").ErrorAdd(err).Log()
			os.Exit(1)
		}
		opt = loaded
	}

	reg := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(reg)

	provider := netprovider.NewDefaultConnectionProvider(netprovider.TCPStack{}, opt.Pool.Workers, netprovider.WithLogger(log))
	defer provider.Close()

	if len(opt.DNSMapper) > 0 {
		provider.SetOverrides(opt.DNSMapper)
	}

	client := httpclient.NewClient(provider, httpclient.WithLogger(log), httpclient.WithMetrics(collectors))
	go client.Run()
	defer client.Close()

	origin := httpclient.NewOrigin("http", *host, *port)

	done := make(chan struct{})
	req := httpclient.NewBytesRequest("GET", origin, *path, map[string]string{}, nil, func(r *httpclient.BytesRequest, err error) {
		defer close(done)
		if err != nil {
			log.Errorf("request failed").ErrorAdd(err).Log()
			return
		}
		log.Infof("request completed").
			FieldAdd("status", r.StatusCode()).
			FieldAdd("body_bytes", len(r.BodyBytes())).
			Log()
		fmt.Printf("HTTP %d, %d bytes\n", r.StatusCode(), len(r.BodyBytes()))
	})

	client.Submit(req)

	select {
	case <-done:
	case <-time.After(opt.Client.NetworkTimeout.Time() + opt.Client.IdleTimeout.Time()):
		log.Warnf("request timed out waiting for a response").Log()
	}

	if *smtpTo != "" {
		runMailDemo(*host, *smtpTo, log)
	}
}

// runMailDemo drives a single unauthenticated mail transaction over the
// host's SMTP port, independent of the HTTP scheduler above: it is a
// second, self-contained demonstration of lineproto against a real
// protocol, not part of the HTTP request/response path.
func runMailDemo(host, to string, log *asynclog.Logger) {
	stack := netprovider.TCPStack{}
	conn, err := stack.Connect(host+":25", 10*time.Second)
	if err != nil {
		log.Errorf("smtp dial failed").ErrorAdd(err).Log()
		return
	}

	runner := lineproto.NewLineProtocolRunner(comm.NewSocket(conn))
	defer runner.Close()

	entry := logrus.NewEntry(logrus.New())
	mail := smtp.NewMailRequest(
		smtp.Configuration{Hello: "asynchttp-demo", From: "demo@asynchttp.local"},
		[]string{to},
		"Subject: asynchttp-demo\r\n\r\nSent by the asynchttp demo CLI.\r\n",
		entry,
	)

	if err := runner.Call(mail); err != nil {
		log.Errorf("smtp transaction failed").ErrorAdd(err).Log()
		return
	}
	log.Infof("smtp transaction completed").FieldAdd("to", to).Log()
}
