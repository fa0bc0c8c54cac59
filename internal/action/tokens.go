package action

import (
	"fmt"
	"strconv"

	"github.com/danmuck/hostctl/internal/pathtoken"
	"github.com/danmuck/hostctl/internal/procs"
)

// Token builders for the renderers. Each returns ("", false) when the
// encoded token would exceed MaxTokenLen, so the caller omits the control
// instead of offering a broken one.

func bounded(tok string) (string, bool) {
	if tok == "" || len(tok) > MaxTokenLen {
		return "", false
	}
	return tok, true
}

func pathToken(prefix, path string) (string, bool) {
	encoded := pathtoken.Encode(path)
	if encoded == "" {
		return "", false
	}
	return bounded(prefix + encoded)
}

func NavToken(dir string) (string, bool)  { return pathToken("file_nav_", dir) }
func DirToken(dir string) (string, bool)  { return pathToken("file_dir_", dir) }
func InfoToken(path string) (string, bool) { return pathToken("file_info_", path) }

func DownloadConfirmToken(path string) (string, bool) {
	return pathToken("file_dl_confirm_", path)
}

func DownloadToken(path string) (string, bool) { return pathToken("file_dl_", path) }

func ZipConfirmToken(dir string) (string, bool) {
	return pathToken("file_zip_confirm_", dir)
}

func ZipToken(dir string) (string, bool)    { return pathToken("file_zip_", dir) }
func UploadToken(dir string) (string, bool) { return pathToken("file_up_", dir) }

func FilePageToken(dir string, page int) (string, bool) {
	encoded := pathtoken.Encode(dir)
	if encoded == "" || page < 0 {
		return "", false
	}
	return bounded(fmt.Sprintf("file_pg_%d_%s", page, encoded))
}

func KillToken(pid int32) (string, bool) {
	if pid < 0 {
		return "", false
	}
	return bounded("proc_kill_" + strconv.FormatInt(int64(pid), 10))
}

func ProcPageToken(cat procs.Category, page int) (string, bool) {
	if page < 0 {
		return "", false
	}
	return bounded(fmt.Sprintf("proc_pg_%s_%d", cat, page))
}

func ProcListToken(cat procs.Category) (string, bool) {
	switch cat {
	case procs.CategoryApps:
		return "proc_list_apps", true
	case procs.CategoryBackground:
		return "proc_list_bg", true
	case procs.CategorySystem:
		return "proc_list_sys", true
	default:
		return "", false
	}
}
