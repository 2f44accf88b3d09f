package service

import (
	nethttp "net/http"

	"clickpipe/internal/biz"
	"clickpipe/pkg/problemdetails"

	"github.com/go-kratos/kratos/v2/errors"
)

// reasonCodec is what kratos reports for an undecodable request body.
const reasonCodec = "CODEC"

// fieldByReason names the request field a validation reason refers to.
var fieldByReason = map[string]string{
	biz.ReasonInvalidDestination: "long_url",
	biz.ReasonInvalidExpiry:      "expires_at",
}

// EncodeError renders err as a problem document. Server side failures keep
// their detail out of the response.
func EncodeError(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	se := errors.FromError(err)
	status := int(se.Code)

	problemType := problemdetails.TypeFromReason(se.Reason)
	detail := se.Message
	switch {
	case status >= nethttp.StatusInternalServerError:
		problemType = problemdetails.TypeInternalError
		detail = "internal server error"
	case se.Reason == reasonCodec:
		problemType = problemdetails.TypeInvalidRequest
		detail = "request body must be a JSON object"
	case status == nethttp.StatusNotFound && se.Reason == "":
		problemType = problemdetails.TypeNotFound
	}

	p := problemdetails.New(status, problemType, problemdetails.Title(status), detail)
	p.Instance = r.URL.Path
	if field, ok := fieldByReason[se.Reason]; ok {
		p.Errors = []problemdetails.FieldError{{Field: field, Message: se.Message}}
	}
	_ = problemdetails.Write(w, p)
}
