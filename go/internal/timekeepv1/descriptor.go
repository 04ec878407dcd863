package timekeepv1

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	// PackageName is the protobuf package of the API.
	PackageName = "timekeep.v1"
	// FileName is the path the schema is registered under.
	FileName = "timekeep/v1/time.proto"
)

type method struct {
	name     string
	req, res any
}

// methods lists the procedures in declaration order. Request and response
// structs are described field by field from their json tags.
var methods = []method{
	{"ClockEventStart", ClockEventStartRequest{}, ClockEventStartResponse{}},
	{"ClockEventStop", ClockEventStopRequest{}, ClockEventStopResponse{}},
	{"ListClockEvents", ListClockEventsRequest{}, ListClockEventsResponse{}},
	{"ClockEventAddTicket", ClockEventAddTicketRequest{}, ClockEventAddTicketResponse{}},
	{"ClockEventStopTicket", ClockEventStopTicketRequest{}, ClockEventStopTicketResponse{}},
	{"UpdateTicketStart", UpdateTicketStartRequest{}, UpdateTicketStartResponse{}},
	{"UpdateTicketStop", UpdateTicketStopRequest{}, UpdateTicketStopResponse{}},
	{"SwitchTicket", SwitchTicketRequest{}, SwitchTicketResponse{}},
	{"CreateTicket", CreateTicketRequest{}, CreateTicketResponse{}},
	{"GetTicket", GetTicketRequest{}, GetTicketResponse{}},
	{"ListTickets", ListTicketsRequest{}, ListTicketsResponse{}},
	{"UpdateClockEventTimes", UpdateClockEventTimesRequest{}, UpdateClockEventTimesResponse{}},
	{"GetSessionData", GetSessionDataRequest{}, GetSessionDataResponse{}},
	{"GetTotalHours", GetTotalHoursRequest{}, GetTotalHoursResponse{}},
}

// Files returns a registry holding the timekeep.v1 schema. The wire format
// stays JSON; the registry backs server reflection so tools such as grpcurl
// and buf curl can discover TimeService.
func Files() (*protoregistry.Files, error) {
	fd, err := FileDescriptor()
	if err != nil {
		return nil, err
	}
	files := new(protoregistry.Files)
	if err := files.RegisterFile(fd); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", FileName, err)
	}
	return files, nil
}

// FileDescriptor describes TimeService and its messages as a proto3 file.
func FileDescriptor() (protoreflect.FileDescriptor, error) {
	b := &fileBuilder{
		file: &descriptorpb.FileDescriptorProto{
			Name:    proto.String(FileName),
			Package: proto.String(PackageName),
			Syntax:  proto.String("proto3"),
		},
		seen: make(map[reflect.Type]bool),
	}

	svc := &descriptorpb.ServiceDescriptorProto{Name: proto.String("TimeService")}
	for _, m := range methods {
		req, res := reflect.TypeOf(m.req), reflect.TypeOf(m.res)
		if err := b.addMessage(req); err != nil {
			return nil, err
		}
		if err := b.addMessage(res); err != nil {
			return nil, err
		}
		svc.Method = append(svc.Method, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.name),
			InputType:  proto.String(fullName(req)),
			OutputType: proto.String(fullName(res)),
		})
	}
	b.file.Service = []*descriptorpb.ServiceDescriptorProto{svc}

	fd, err := protodesc.NewFile(b.file, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", FileName, err)
	}
	return fd, nil
}

type fileBuilder struct {
	file *descriptorpb.FileDescriptorProto
	seen map[reflect.Type]bool
}

func (b *fileBuilder) addMessage(t reflect.Type) error {
	if b.seen[t] {
		return nil
	}
	b.seen[t] = true

	msg := &descriptorpb.DescriptorProto{Name: proto.String(t.Name())}
	b.file.MessageType = append(b.file.MessageType, msg)

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		jsonName, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if jsonName == "" || jsonName == "-" {
			return fmt.Errorf("field %s.%s has no json name", t.Name(), sf.Name)
		}

		fd := &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(snakeCase(jsonName)),
			JsonName: proto.String(jsonName),
			Number:   proto.Int32(int32(i + 1)),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		}

		ft := sf.Type
		if ft.Kind() == reflect.Slice {
			fd.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
			ft = ft.Elem()
		}
		optional := false
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
			optional = ft.Kind() != reflect.Struct
		}

		switch ft.Kind() {
		case reflect.String:
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum()
		case reflect.Int64:
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_INT64.Enum()
		case reflect.Bool:
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum()
		case reflect.Float64:
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE.Enum()
		case reflect.Struct:
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
			fd.TypeName = proto.String(fullName(ft))
			if err := b.addMessage(ft); err != nil {
				return err
			}
		default:
			return fmt.Errorf("field %s.%s has unsupported kind %s", t.Name(), sf.Name, ft.Kind())
		}

		// Nullable scalars become proto3 optional fields, each in its own
		// synthetic oneof.
		if optional {
			fd.OneofIndex = proto.Int32(int32(len(msg.OneofDecl)))
			fd.Proto3Optional = proto.Bool(true)
			msg.OneofDecl = append(msg.OneofDecl, &descriptorpb.OneofDescriptorProto{
				Name: proto.String("_" + fd.GetName()),
			})
		}
		msg.Field = append(msg.Field, fd)
	}
	return nil
}

func fullName(t reflect.Type) string {
	return "." + PackageName + "." + t.Name()
}

// snakeCase turns a camelCase json name into a proto field name.
func snakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
