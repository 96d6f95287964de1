package recognitionpb

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// CinRequest carries one identity-card image.
type CinRequest struct {
	ImageData []byte
	Filename  string
}

func (m *CinRequest) MarshalWire() []byte {
	var b []byte
	b = appendBytes(b, 1, m.ImageData)
	b = appendString(b, 2, m.Filename)
	return b
}

func (m *CinRequest) UnmarshalWire(b []byte) error {
	*m = CinRequest{}
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.ImageData)
		case 2:
			return consumeString(typ, b, &m.Filename)
		}
		return 0, false
	})
}

// CinResponse is the identity extractor's answer.
type CinResponse struct {
	Success            bool
	IdNumber           string
	Name               string
	Lastname           string
	ConfidenceId       float32
	ConfidenceName     float32
	ConfidenceLastname float32
	ErrorMessage       string
}

func (m *CinResponse) MarshalWire() []byte {
	var b []byte
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.IdNumber)
	b = appendString(b, 3, m.Name)
	b = appendString(b, 4, m.Lastname)
	b = appendFloat(b, 5, m.ConfidenceId)
	b = appendFloat(b, 6, m.ConfidenceName)
	b = appendFloat(b, 7, m.ConfidenceLastname)
	b = appendString(b, 8, m.ErrorMessage)
	return b
}

func (m *CinResponse) UnmarshalWire(b []byte) error {
	*m = CinResponse{}
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.Success)
		case 2:
			return consumeString(typ, b, &m.IdNumber)
		case 3:
			return consumeString(typ, b, &m.Name)
		case 4:
			return consumeString(typ, b, &m.Lastname)
		case 5:
			return consumeFloat(typ, b, &m.ConfidenceId)
		case 6:
			return consumeFloat(typ, b, &m.ConfidenceName)
		case 7:
			return consumeFloat(typ, b, &m.ConfidenceLastname)
		case 8:
			return consumeString(typ, b, &m.ErrorMessage)
		}
		return 0, false
	})
}

// PlateRequest carries one vehicle image.
type PlateRequest struct {
	Image    []byte
	Filename string
}

func (m *PlateRequest) MarshalWire() []byte {
	var b []byte
	b = appendBytes(b, 1, m.Image)
	b = appendString(b, 2, m.Filename)
	return b
}

func (m *PlateRequest) UnmarshalWire(b []byte) error {
	*m = PlateRequest{}
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &m.Image)
		case 2:
			return consumeString(typ, b, &m.Filename)
		}
		return 0, false
	})
}

// PlateResponse is the plate detector's answer.
type PlateResponse struct {
	Success      bool
	PlateNumber  string
	Confidence   float32
	ErrorMessage string
}

func (m *PlateResponse) MarshalWire() []byte {
	var b []byte
	b = appendBool(b, 1, m.Success)
	b = appendString(b, 2, m.PlateNumber)
	b = appendFloat(b, 3, m.Confidence)
	b = appendString(b, 4, m.ErrorMessage)
	return b
}

func (m *PlateResponse) UnmarshalWire(b []byte) error {
	*m = PlateResponse{}
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return consumeBool(typ, b, &m.Success)
		case 2:
			return consumeString(typ, b, &m.PlateNumber)
		case 3:
			return consumeFloat(typ, b, &m.Confidence)
		case 4:
			return consumeString(typ, b, &m.ErrorMessage)
		}
		return 0, false
	})
}
