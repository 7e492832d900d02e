// Command vpce-ips runs the VPC endpoint IP lookup outside Lambda: it prints
// the IPs, binds them to target slots, syncs a target group or replays a
// saved custom resource event.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/monder/vpce-ip-lookup/callback"
	"github.com/monder/vpce-ip-lookup/config"
	"github.com/monder/vpce-ip-lookup/reconciler"
)

var (
	flagRegion = &cli.StringFlag{
		Name:    "region",
		EnvVars: []string{"AWS_REGION"},
		Usage:   "AWS region of the VPC endpoint",
	}
	flagLogLevel = &cli.StringFlag{
		Name:    "log-level",
		EnvVars: []string{"LOG_LEVEL"},
		Value:   "info",
		Usage:   "logrus level",
	}
	flagLogFormat = &cli.StringFlag{
		Name:    "log-format",
		EnvVars: []string{"LOG_FORMAT"},
		Value:   "text",
		Usage:   "json or text",
	}
	flagVpcEndpointID = &cli.StringFlag{
		Name:     "vpc-endpoint-id",
		Required: true,
		Usage:    "interface VPC endpoint to resolve, e.g. vpce-0123456789abcdef0",
	}
	flagPort = &cli.Int64Flag{
		Name:  "port",
		Value: 443,
		Usage: "port every IP target is registered on",
	}
	flagSlots = &cli.IntFlag{
		Name:     "slots",
		Required: true,
		Usage:    "number of target slots the IPs are bound to, usually one per availability zone",
	}
)

func main() {
	app := &cli.App{
		Name:  "vpce-ips",
		Usage: "Resolve the private IPs behind an interface VPC endpoint",
		Flags: []cli.Flag{flagRegion, flagLogLevel, flagLogFormat},
		Commands: []*cli.Command{
			{
				Name:   "lookup",
				Usage:  "print the endpoint's network interface IPs as JSON",
				Flags:  []cli.Flag{flagVpcEndpointID},
				Action: runLookup,
			},
			{
				Name:   "targets",
				Usage:  "print the IP targets bound to a fixed number of slots",
				Flags:  []cli.Flag{flagVpcEndpointID, flagPort, flagSlots},
				Action: runTargets,
			},
			{
				Name:  "sync",
				Usage: "make a target group's members equal the endpoint's IP targets",
				Flags: []cli.Flag{
					flagVpcEndpointID, flagPort, flagSlots,
					&cli.StringFlag{
						Name:     "target-group-arn",
						Required: true,
						Usage:    "target group to sync; its region is used for the ELBv2 client",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print the changes without applying them",
					},
				},
				Action: runSync,
			},
			{
				Name:  "invoke",
				Usage: "run the custom resource handler against a saved event",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "event",
						Required: true,
						Usage:    "path to the event JSON, - for stdin",
					},
					&cli.StringFlag{
						Name:  "log-group",
						Value: "local",
						Usage: "log group named in the report's Reason",
					},
					&cli.StringFlag{
						Name:  "log-stream",
						Value: "local",
						Usage: "log stream named in the report's Reason and used as fallback PhysicalResourceId",
					},
					&cli.DurationFlag{
						Name:  "callback-timeout",
						Value: 10 * time.Second,
						Usage: "timeout of the callback PUT",
					},
				},
				Action: runInvoke,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func setup(cCtx *cli.Context) (*logrus.Entry, *session.Session, error) {
	logger, err := config.NewLogger(cCtx.String(flagLogLevel.Name), cCtx.String(flagLogFormat.Name))
	if err != nil {
		return nil, nil, err
	}
	// Logs go to stderr so stdout stays machine readable.
	logger.Logger.SetOutput(os.Stderr)

	awsConfig := &aws.Config{}
	if region := cCtx.String(flagRegion.Name); region != "" {
		awsConfig.Region = aws.String(region)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating aws session")
	}
	return logger, sess, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func lookup(cCtx *cli.Context) (*reconciler.Result, *logrus.Entry, *session.Session, error) {
	logger, sess, err := setup(cCtx)
	if err != nil {
		return nil, nil, nil, err
	}
	result, err := reconciler.Lookup(cCtx.Context, ec2.New(sess), logger, cCtx.String(flagVpcEndpointID.Name))
	if err != nil {
		return nil, nil, nil, err
	}
	return result, logger, sess, nil
}

func runLookup(cCtx *cli.Context) error {
	result, _, _, err := lookup(cCtx)
	if err != nil {
		return err
	}
	return printJSON(cCtx.App.Writer, map[string][]string{
		reconciler.NetworkInterfaceIPsKey: result.NetworkInterfaceIPs,
	})
}

func runTargets(cCtx *cli.Context) error {
	result, _, _, err := lookup(cCtx)
	if err != nil {
		return err
	}
	targets, err := reconciler.BindTargets(result.NetworkInterfaceIPs, cCtx.Int(flagSlots.Name), cCtx.Int64(flagPort.Name))
	if err != nil {
		return err
	}
	return printJSON(cCtx.App.Writer, targets)
}

func runSync(cCtx *cli.Context) error {
	targetGroupARN := cCtx.String("target-group-arn")
	parsedARN, err := arn.Parse(targetGroupARN)
	if err != nil {
		return errors.Wrap(err, "parsing target group arn")
	}

	result, logger, sess, err := lookup(cCtx)
	if err != nil {
		return err
	}
	targets, err := reconciler.BindTargets(result.NetworkInterfaceIPs, cCtx.Int(flagSlots.Name), cCtx.Int64(flagPort.Name))
	if err != nil {
		return err
	}

	svc := elbv2.New(sess, &aws.Config{
		Region: aws.String(parsedARN.Region),
	})
	res, err := reconciler.NewTargetGroupSyncer(svc, logger, cCtx.Bool("dry-run")).Sync(cCtx.Context, targetGroupARN, targets)
	if err != nil {
		return err
	}
	return printJSON(cCtx.App.Writer, res)
}

func runInvoke(cCtx *cli.Context) error {
	logger, sess, err := setup(cCtx)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if path := cCtx.String("event"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var event reconciler.Event
	if err := json.NewDecoder(in).Decode(&event); err != nil {
		return errors.Wrap(err, "decoding event")
	}

	callbackTimeout := cCtx.Duration("callback-timeout")
	r := reconciler.New(
		ec2.New(sess),
		callback.NewClient(&http.Client{Timeout: callbackTimeout}, logger),
		reconciler.LogLocation{
			Group:  cCtx.String("log-group"),
			Stream: cCtx.String("log-stream"),
		},
		callbackTimeout,
		logger,
	)
	if err := r.Reconcile(cCtx.Context, event); err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, "reported", event.RequestType, "for", event.LogicalResourceID)
	return nil
}
