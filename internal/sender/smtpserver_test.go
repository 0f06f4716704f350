package sender

import (
	"bufio"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// selfSignedTLS 生成只对 127.0.0.1 有效的证书，返回服务端配置和信任它的客户端配置
func selfSignedTLS(t *testing.T) (server, client *tls.Config) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	server = &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}}}
	client = &tls.Config{RootCAs: pool}
	return server, client
}

// smtpSession 是假服务器一次会话的记录
type smtpSession struct {
	commands []string // 客户端发出的命令行，按顺序
	data     string   // DATA 内容（不含结束行）
	tls      bool     // 会话结束时连接是否已加密
	closed   bool     // QUIT 之后客户端是否关闭了连接
}

// fakeSMTPServer 服务一个客户端。implicitTLS 为 false 时先明文再 STARTTLS。
// dataReply 是 DATA 结束后的应答行。
type fakeSMTPServer struct {
	ln          net.Listener
	serverTLS   *tls.Config
	implicitTLS bool
	dataReply   string
	done        chan smtpSession
}

func startFakeSMTP(t *testing.T, serverTLS *tls.Config, implicitTLS bool, dataReply string) *fakeSMTPServer {
	t.Helper()

	var ln net.Listener
	var err error
	if implicitTLS {
		ln, err = tls.Listen("tcp", "127.0.0.1:0", serverTLS)
	} else {
		ln, err = net.Listen("tcp", "127.0.0.1:0")
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	s := &fakeSMTPServer{
		ln:          ln,
		serverTLS:   serverTLS,
		implicitTLS: implicitTLS,
		dataReply:   dataReply,
		done:        make(chan smtpSession, 1),
	}
	go s.serve()
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	session := smtpSession{tls: s.implicitTLS}
	defer func() { s.done <- session }()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	reply := func(lines ...string) {
		for _, l := range lines {
			_, _ = w.WriteString(l + "\r\n")
		}
		_ = w.Flush()
	}

	reply("220 fake ESMTP ready")
	quit := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			session.closed = quit
			return
		}
		line = strings.TrimRight(line, "\r\n")
		session.commands = append(session.commands, line)
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])

		switch verb {
		case "EHLO":
			if session.tls {
				reply("250-fake", "250 AUTH PLAIN")
			} else {
				reply("250-fake", "250-STARTTLS", "250 AUTH PLAIN")
			}
		case "STARTTLS":
			reply("220 go ahead")
			tlsConn := tls.Server(conn, s.serverTLS)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			conn = tlsConn
			r = bufio.NewReader(tlsConn)
			w = bufio.NewWriter(tlsConn)
			session.tls = true
		case "AUTH":
			reply("235 2.7.0 authenticated")
		case "MAIL", "RCPT":
			reply("250 ok")
		case "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var body []string
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				l = strings.TrimRight(l, "\r\n")
				if l == "." {
					break
				}
				body = append(body, l)
			}
			session.data = strings.Join(body, "\n")
			reply(s.dataReply)
		case "QUIT":
			quit = true
			reply("221 bye")
		default:
			reply("250 ok")
		}
	}
}
