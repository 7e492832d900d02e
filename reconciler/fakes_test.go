package reconciler

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/elbv2"
	"github.com/aws/aws-sdk-go/service/elbv2/elbv2iface"

	"github.com/monder/vpce-ip-lookup/callback"
)

// fakeEC2 answers the two describe calls the lookup makes. Any other EC2
// call panics through the nil embedded interface.
type fakeEC2 struct {
	ec2iface.EC2API

	describeVpcEndpoints      func(*ec2.DescribeVpcEndpointsInput) (*ec2.DescribeVpcEndpointsOutput, error)
	describeNetworkInterfaces func(*ec2.DescribeNetworkInterfacesInput) (*ec2.DescribeNetworkInterfacesOutput, error)

	vpcEndpointCalls      []*ec2.DescribeVpcEndpointsInput
	networkInterfaceCalls []*ec2.DescribeNetworkInterfacesInput
}

func (f *fakeEC2) DescribeVpcEndpointsWithContext(ctx aws.Context, in *ec2.DescribeVpcEndpointsInput, _ ...request.Option) (*ec2.DescribeVpcEndpointsOutput, error) {
	f.vpcEndpointCalls = append(f.vpcEndpointCalls, in)
	if f.describeVpcEndpoints == nil {
		return nil, errors.New("unexpected DescribeVpcEndpoints call")
	}
	return f.describeVpcEndpoints(in)
}

func (f *fakeEC2) DescribeNetworkInterfacesWithContext(ctx aws.Context, in *ec2.DescribeNetworkInterfacesInput, _ ...request.Option) (*ec2.DescribeNetworkInterfacesOutput, error) {
	f.networkInterfaceCalls = append(f.networkInterfaceCalls, in)
	if f.describeNetworkInterfaces == nil {
		return nil, errors.New("unexpected DescribeNetworkInterfaces call")
	}
	return f.describeNetworkInterfaces(in)
}

func (f *fakeEC2) calls() int {
	return len(f.vpcEndpointCalls) + len(f.networkInterfaceCalls)
}

type eni struct {
	id string
	ip string
}

// newCloud fakes an account holding one endpoint with the given interfaces.
// Interfaces are returned in the order they are requested.
func newCloud(vpcEndpointID string, enis ...eni) *fakeEC2 {
	ips := map[string]string{}
	ids := make([]*string, 0, len(enis))
	for _, e := range enis {
		ids = append(ids, aws.String(e.id))
		ips[e.id] = e.ip
	}

	return &fakeEC2{
		describeVpcEndpoints: func(in *ec2.DescribeVpcEndpointsInput) (*ec2.DescribeVpcEndpointsOutput, error) {
			out := &ec2.DescribeVpcEndpointsOutput{}
			for _, id := range in.VpcEndpointIds {
				if aws.StringValue(id) == vpcEndpointID {
					out.VpcEndpoints = append(out.VpcEndpoints, &ec2.VpcEndpoint{
						VpcEndpointId:       aws.String(vpcEndpointID),
						VpcEndpointType:     aws.String(ec2.VpcEndpointTypeInterface),
						NetworkInterfaceIds: ids,
					})
				}
			}
			return out, nil
		},
		describeNetworkInterfaces: func(in *ec2.DescribeNetworkInterfacesInput) (*ec2.DescribeNetworkInterfacesOutput, error) {
			out := &ec2.DescribeNetworkInterfacesOutput{}
			for _, id := range in.NetworkInterfaceIds {
				ip, ok := ips[aws.StringValue(id)]
				if !ok {
					continue
				}
				ni := &ec2.NetworkInterface{NetworkInterfaceId: id}
				if ip != "" {
					ni.PrivateIpAddress = aws.String(ip)
				}
				out.NetworkInterfaces = append(out.NetworkInterfaces, ni)
			}
			return out, nil
		},
	}
}

type fakeReporter struct {
	urls    []string
	reports []*callback.Report
	err     error
}

func (f *fakeReporter) Send(ctx context.Context, responseURL string, report *callback.Report) error {
	f.urls = append(f.urls, responseURL)
	f.reports = append(f.reports, report)
	return f.err
}

type fakeELBV2 struct {
	elbv2iface.ELBV2API

	health       []*elbv2.TargetHealthDescription
	describeErr  error
	registerErr  error
	registered   [][]*elbv2.TargetDescription
	deregistered [][]*elbv2.TargetDescription
}

func (f *fakeELBV2) DescribeTargetHealthWithContext(ctx aws.Context, in *elbv2.DescribeTargetHealthInput, _ ...request.Option) (*elbv2.DescribeTargetHealthOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &elbv2.DescribeTargetHealthOutput{TargetHealthDescriptions: f.health}, nil
}

func (f *fakeELBV2) RegisterTargetsWithContext(ctx aws.Context, in *elbv2.RegisterTargetsInput, _ ...request.Option) (*elbv2.RegisterTargetsOutput, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, in.Targets)
	return &elbv2.RegisterTargetsOutput{}, nil
}

func (f *fakeELBV2) DeregisterTargetsWithContext(ctx aws.Context, in *elbv2.DeregisterTargetsInput, _ ...request.Option) (*elbv2.DeregisterTargetsOutput, error) {
	f.deregistered = append(f.deregistered, in.Targets)
	return &elbv2.DeregisterTargetsOutput{}, nil
}

func target(ip string, port int64) *elbv2.TargetDescription {
	return &elbv2.TargetDescription{Id: aws.String(ip), Port: aws.Int64(port)}
}

func targetHealth(ip string, port int64, state string) *elbv2.TargetHealthDescription {
	return &elbv2.TargetHealthDescription{
		Target:       target(ip, port),
		TargetHealth: &elbv2.TargetHealth{State: aws.String(state)},
	}
}
