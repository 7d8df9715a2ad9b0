package server

import (
	"strconv"

	"github.com/nczempin/kurai-httpd/protocol"
)

// Handler fills in the response for one request
type Handler interface {
	Handle(req *protocol.HttpRequest, res *protocol.HttpResponse)
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(req *protocol.HttpRequest, res *protocol.HttpResponse)

// Handle implements Handler
func (f HandlerFunc) Handle(req *protocol.HttpRequest, res *protocol.HttpResponse) {
	f(req, res)
}

const greetingPage = "<!DOCTYPE html>\r\n" +
	"<html>\r\n" +
	"<head>\r\n" +
	"<title>Testing Basic HTTP-SERVER</title>\r\n" +
	"</head>\r\n" +
	"<body>\r\n" +
	"<h1>Hello kurai-webserver!</h1>\r\n" +
	"</body>\r\n" +
	"</html>\r\n"

// DefaultHandler answers every request with the same greeting page
func DefaultHandler() Handler {
	return HandlerFunc(func(req *protocol.HttpRequest, res *protocol.HttpResponse) {
		res.StatusCode = protocol.StatusOK
		res.SetHeader("Content-Type", "text/html; charset=UTF-8")
		res.SetHeader("Content-Length", strconv.Itoa(len(greetingPage)))
		res.SetHeader("Connection", "close")
		res.SetBody([]byte(greetingPage))
	})
}
