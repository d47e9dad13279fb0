package sql

import (
	"embed"
)

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/find_exact.sql
var FindExact string

//go:embed queries/find_by_member.sql
var FindByMember string

//go:embed queries/find_top_by_diagnosis.sql
var FindTopByDiagnosis string

//go:embed queries/find_chapter.sql
var FindChapter string

//go:embed queries/describe_cmg.sql
var DescribeCMG string

//go:embed queries/find_procedure.sql
var FindProcedure string

//go:embed queries/find_tariff_prefix.sql
var FindTariffPrefix string

//go:embed queries/tariff_exists.sql
var TariffExists string

//go:embed queries/find_tariff.sql
var FindTariff string

//go:embed queries/count_tariff_classifications.sql
var CountTariffClassifications string

//go:embed queries/register_load.sql
var RegisterLoad string

//go:embed queries/lookup_active_load.sql
var LookupActiveLoad string

//go:embed queries/update_load_status.sql
var UpdateLoadStatus string

//go:embed queries/supersede_loads.sql
var SupersedeLoads string
