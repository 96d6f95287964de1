package recognitionpb

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ExtractCinDataFullMethod = "/CinExtractionService/ExtractCinData"
	DetectPlateFullMethod    = "/PlateDetectionService/DetectPlate"
)

// CinExtractionServiceClient calls the identity extractor.
type CinExtractionServiceClient interface {
	ExtractCinData(ctx context.Context, in *CinRequest, opts ...grpc.CallOption) (*CinResponse, error)
}

type cinExtractionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCinExtractionServiceClient binds a client to cc. cc must be dialed with DialOption.
func NewCinExtractionServiceClient(cc grpc.ClientConnInterface) CinExtractionServiceClient {
	return &cinExtractionServiceClient{cc: cc}
}

func (c *cinExtractionServiceClient) ExtractCinData(ctx context.Context, in *CinRequest, opts ...grpc.CallOption) (*CinResponse, error) {
	out := new(CinResponse)
	if err := c.cc.Invoke(ctx, ExtractCinDataFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// PlateDetectionServiceClient calls the plate detector.
type PlateDetectionServiceClient interface {
	DetectPlate(ctx context.Context, in *PlateRequest, opts ...grpc.CallOption) (*PlateResponse, error)
}

type plateDetectionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPlateDetectionServiceClient binds a client to cc. cc must be dialed with DialOption.
func NewPlateDetectionServiceClient(cc grpc.ClientConnInterface) PlateDetectionServiceClient {
	return &plateDetectionServiceClient{cc: cc}
}

func (c *plateDetectionServiceClient) DetectPlate(ctx context.Context, in *PlateRequest, opts ...grpc.CallOption) (*PlateResponse, error) {
	out := new(PlateResponse)
	if err := c.cc.Invoke(ctx, DetectPlateFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CinExtractionServiceServer is implemented by identity extractors.
type CinExtractionServiceServer interface {
	ExtractCinData(ctx context.Context, in *CinRequest) (*CinResponse, error)
}

// PlateDetectionServiceServer is implemented by plate detectors.
type PlateDetectionServiceServer interface {
	DetectPlate(ctx context.Context, in *PlateRequest) (*PlateResponse, error)
}

// RegisterCinExtractionServiceServer mounts srv on s. s must be built with ServerOption.
func RegisterCinExtractionServiceServer(s grpc.ServiceRegistrar, srv CinExtractionServiceServer) {
	s.RegisterService(&cinExtractionServiceDesc, srv)
}

// RegisterPlateDetectionServiceServer mounts srv on s. s must be built with ServerOption.
func RegisterPlateDetectionServiceServer(s grpc.ServiceRegistrar, srv PlateDetectionServiceServer) {
	s.RegisterService(&plateDetectionServiceDesc, srv)
}

var cinExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: "CinExtractionService",
	HandlerType: (*CinExtractionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExtractCinData",
			Handler:    extractCinDataHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cin_extraction.proto",
}

var plateDetectionServiceDesc = grpc.ServiceDesc{
	ServiceName: "PlateDetectionService",
	HandlerType: (*PlateDetectionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "DetectPlate",
			Handler:    detectPlateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "plate_detection.proto",
}

func extractCinDataHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CinRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CinExtractionServiceServer).ExtractCinData(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractCinDataFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CinExtractionServiceServer).ExtractCinData(ctx, req.(*CinRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func detectPlateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PlateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlateDetectionServiceServer).DetectPlate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DetectPlateFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlateDetectionServiceServer).DetectPlate(ctx, req.(*PlateRequest))
	}
	return interceptor(ctx, in, info, handler)
}
