package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPDialer opens SSH connections with an SFTP subsystem
type SFTPDialer struct {
	desc        models.ConnectionDescriptor
	dialTimeout time.Duration
	keepalive   time.Duration
	logger      zerolog.Logger
}

// NewSFTPDialer creates a dialer. A keepalive of zero disables keepalive requests.
func NewSFTPDialer(desc models.ConnectionDescriptor, dialTimeout, keepalive time.Duration, logger zerolog.Logger) *SFTPDialer {
	logger = logger.With().Str("module", "sftp").Str("remote", desc.Address()).Logger()
	if desc.KnownHostsFile == "" {
		logger.Warn().Msg("No known_hosts file configured, host keys will not be verified")
	}
	return &SFTPDialer{
		desc:        desc,
		dialTimeout: dialTimeout,
		keepalive:   keepalive,
		logger:      logger,
	}
}

// Dial connects, authenticates and starts the SFTP subsystem
func (d *SFTPDialer) Dial(ctx context.Context) (Conn, error) {
	cfg, err := d.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := d.desc.Address()
	netConn, err := (&net.Dialer{Timeout: d.dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if d.dialTimeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(d.dialTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		_ = netConn.Close()
		return nil, classifyHandshakeError(err)
	}
	_ = netConn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)
	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("starting sftp subsystem: %w", err)
	}

	conn := newSFTPConn(client, sftpClient)
	conn.startKeepalive(d.keepalive, d.logger)
	d.logger.Debug().Str("user", d.desc.Username).Msg("SSH session established")
	return conn, nil
}

func (d *SFTPDialer) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if d.desc.PrivateKeyFile != "" {
		signer, err := loadSigner(d.desc.PrivateKeyFile, d.desc.PrivateKeyPassphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if d.desc.Password != "" {
		auth = append(auth, ssh.Password(d.desc.Password))
	}
	if len(auth) == 0 {
		return nil, common.NewConfigurationError("sftp", "password", "no password or private key configured")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if d.desc.KnownHostsFile != "" {
		cb, err := knownhosts.New(d.desc.KnownHostsFile)
		if err != nil {
			return nil, common.NewConfigurationError("sftp", "known_hosts_file", err.Error())
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            d.desc.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.dialTimeout,
	}, nil
}

func loadSigner(keyFile, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, common.NewConfigurationError("sftp", "private_key_file", err.Error())
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, common.NewConfigurationError("sftp", "private_key_file", err.Error())
	}
	return signer, nil
}

// classifyHandshakeError marks credential and host key rejections as permanent
func classifyHandshakeError(err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return fmt.Errorf("%w: host key rejected: %v", ErrAuthentication, err)
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return err
}

// sshTransport is the part of *ssh.Client a connection needs
type sshTransport interface {
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
	Close() error
}

// sftpConn is one SSH client plus its SFTP subsystem
type sftpConn struct {
	ssh       sshTransport
	sftp      *sftp.Client
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func newSFTPConn(transport sshTransport, client *sftp.Client) *sftpConn {
	return &sftpConn{
		ssh:  transport,
		sftp: client,
		done: make(chan struct{}),
	}
}

func (c *sftpConn) startKeepalive(interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				if _, _, err := c.ssh.SendRequest("keepalive@openssh.com", true, nil); err != nil {
					logger.Debug().Err(err).Msg("Keepalive request failed")
					return
				}
			}
		}
	}()
}

func (c *sftpConn) Put(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return common.NewLocalResourceError("put", localPath, err)
	}
	defer src.Close()

	dst, err := c.sftp.Create(remotePath)
	if err != nil {
		return err
	}
	if _, err := dst.ReadFrom(src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func (c *sftpConn) Remove(remotePath string) error {
	return c.sftp.Remove(remotePath)
}

func (c *sftpConn) Rename(oldPath, newPath string) error {
	return c.sftp.Rename(oldPath, newPath)
}

// Close stops the keepalive loop and tears down both layers
func (c *sftpConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		sftpErr := c.sftp.Close()
		sshErr := c.ssh.Close()
		c.wg.Wait()
		c.closeErr = errors.Join(sftpErr, sshErr)
	})
	return c.closeErr
}
