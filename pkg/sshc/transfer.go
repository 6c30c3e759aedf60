package sshc

import (
	"io"
	"os"
	"sync"

	"sshclient/pkg/conf"
	"sshclient/pkg/fileinfo"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
)

const (
	opList     = "list"
	opDownload = "download"
	opStat     = "stat"
)

// remoteFS is the part of *sftp.Client a FileTransfer relies on.
type remoteFS interface {
	ReadDir(p string) ([]os.FileInfo, error)
	Stat(p string) (os.FileInfo, error)
	Open(p string) (*sftp.File, error)
	Close() error
}

// FileTransfer is one SFTP channel bound to a Session, open for its whole
// lifetime.
type FileTransfer struct {
	session  *Session
	channel  io.Closer
	client   remoteFS
	closeMu  sync.Mutex
	isClosed bool
}

// OpenFileTransfer opens the sftp subsystem on a new channel.
func (s *Session) OpenFileTransfer() (*FileTransfer, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}

	s.Debugf("Opening SFTP channel to %s", s.params.Host)
	channel, err := s.conn.NewSession()
	if err != nil {
		return nil, &ChannelError{Kind: conf.SSHSubsystemSFTP, Err: err}
	}

	cleanup := func(err error) (*FileTransfer, error) {
		_ = channel.Close()
		return nil, &ChannelError{Kind: conf.SSHSubsystemSFTP, Err: err}
	}

	pw, err := channel.StdinPipe()
	if err != nil {
		return cleanup(err)
	}
	pr, err := channel.StdoutPipe()
	if err != nil {
		return cleanup(err)
	}
	if err = channel.RequestSubsystem(conf.SSHSubsystemSFTP); err != nil {
		return cleanup(err)
	}

	client, err := sftp.NewClientPipe(pr, pw, sftp.MaxPacket(conf.SFTPBufferSize))
	if err != nil {
		return cleanup(errors.Wrap(err, "failed to create SFTP client"))
	}

	ft := &FileTransfer{
		session: s,
		channel: channel,
		client:  client,
	}
	if err = s.track(ft); err != nil {
		_ = ft.release()
		return nil, err
	}
	s.Debugf("SFTP client connected")

	return ft, nil
}

func (ft *FileTransfer) ensureOpen() error {
	ft.closeMu.Lock()
	defer ft.closeMu.Unlock()
	if ft.isClosed {
		return ErrTransferClosed
	}
	return nil
}

// List returns the entries of the remote directory path in the order the
// server sent them, without the "." and ".." entries.
func (ft *FileTransfer) List(path string) ([]*fileinfo.FileInfo, error) {
	if err := ft.ensureOpen(); err != nil {
		return nil, err
	}

	entries, err := ft.client.ReadDir(path)
	if err != nil {
		return nil, &TransferError{Op: opList, Path: path, Err: err}
	}

	infos := make([]*fileinfo.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Name() == "." || entry.Name() == ".." {
			continue
		}
		infos = append(infos, fileinfo.FromFileInfo(entry))
	}

	return infos, nil
}

// Stat returns the attributes of the remote path.
func (ft *FileTransfer) Stat(path string) (*fileinfo.FileInfo, error) {
	if err := ft.ensureOpen(); err != nil {
		return nil, err
	}

	fi, err := ft.client.Stat(path)
	if err != nil {
		return nil, &TransferError{Op: opStat, Path: path, Err: err}
	}
	return fileinfo.FromFileInfo(fi), nil
}

// Download streams the whole remote file into w and returns the number of
// bytes written.
func (ft *FileTransfer) Download(path string, w io.Writer) (int64, error) {
	if err := ft.ensureOpen(); err != nil {
		return 0, err
	}

	rFile, err := ft.client.Open(path)
	if err != nil {
		return 0, &TransferError{Op: opDownload, Path: path, Err: err}
	}
	defer func() { _ = rFile.Close() }()

	n, err := io.Copy(w, rFile)
	if err != nil {
		return n, &TransferError{Op: opDownload, Path: path, Err: err}
	}
	ft.session.Debugf("Downloaded %s (%d bytes)", path, n)

	return n, nil
}

// Close disconnects the SFTP channel. A second call returns ErrTransferClosed.
func (ft *FileTransfer) Close() error {
	err := ft.release()
	if !errors.Is(err, ErrTransferClosed) {
		ft.session.forget(ft)
	}
	return err
}

func (ft *FileTransfer) release() error {
	ft.closeMu.Lock()
	defer ft.closeMu.Unlock()
	if ft.isClosed {
		return ErrTransferClosed
	}
	ft.isClosed = true

	var result *multierror.Error
	if err := ft.client.Close(); err != nil && !errors.Is(err, io.EOF) {
		result = multierror.Append(result, errors.Wrap(err, "failed to close SFTP client"))
	}
	if ft.channel != nil {
		if err := ft.channel.Close(); err != nil && !errors.Is(err, io.EOF) {
			result = multierror.Append(result, errors.Wrap(err, "failed to close SFTP channel"))
		}
	}
	return result.ErrorOrNil()
}
