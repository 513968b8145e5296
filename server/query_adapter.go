package server

import (
	"strconv"

	"github.com/dm-vev/chunkengine/server/query"
)

// queryData assembles the Data structure answered to status queries. It keeps
// the query implementation agnostic of the Server internals.
func (srv *Server) queryData(host string, port int) query.Data {
	st := srv.Status()
	return query.Data{
		HostName:      srv.conf.Name,
		WorldName:     srv.conf.World.Dir,
		HostIP:        host,
		HostPort:      port,
		LoadedColumns: st.LoadedColumns,
		Viewers:       st.Viewers,
		ForcedChunks:  st.ForcedChunks,
		TPS:           strconv.FormatFloat(st.TPS, 'f', 2, 64),
		Tick:          st.CurrentTick,
	}
}
