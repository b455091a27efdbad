package s3

import (
	"context"
	s3pkg "github.com/aws/aws-sdk-go-v2/service/s3"
	transport "github.com/aws/smithy-go/endpoints"
	"net/url"
)

// endpointResolver pins all requests to a custom endpoint,
// e.g. MinIO, LocalStack or the GCS XML API.
type endpointResolver struct {
	url       *url.URL
	pathStyle bool
}

func (resolver *endpointResolver) ResolveEndpoint(
	_ context.Context,
	params s3pkg.EndpointParameters,
) (transport.Endpoint, error) {
	uri := *resolver.url

	if resolver.pathStyle && params.Bucket != nil {
		uri = *uri.JoinPath(*params.Bucket)
	}

	return transport.Endpoint{
		URI: uri,
	}, nil
}
